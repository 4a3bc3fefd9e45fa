package handlers

// LoginRequest is the voter login body
type LoginRequest struct {
	Aadhar  string `json:"aadhar"`
	VoterID string `json:"voter_id"`
}

// VoteRequest is the ballot submission body
type VoteRequest struct {
	VoterID     string `json:"voter_id"`
	CandidateID string `json:"candidate_id"`
}

// PhotoRequest replaces a candidate photo. An empty photo clears it.
type PhotoRequest struct {
	Photo string `json:"photo"`
}

// AdminLoginRequest is the admin login body
type AdminLoginRequest struct {
	Password string `json:"password"`
}

// LogLevelRequest changes runtime logging
type LogLevelRequest struct {
	Level       string `json:"level"`
	HTTPLogging *bool  `json:"http_logging,omitempty"`
}
