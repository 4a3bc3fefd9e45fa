package models

import "time"

// ElectionStatus is the lifecycle state of the election
type ElectionStatus string

const (
	StatusNotStarted ElectionStatus = "NOT_STARTED"
	StatusInProgress ElectionStatus = "IN_PROGRESS"
	StatusDeclared   ElectionStatus = "DECLARED"
)

// Valid reports whether s is one of the known lifecycle states
func (s ElectionStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusDeclared:
		return true
	}
	return false
}

// Voter represents a registered voter
type Voter struct {
	VoterID   string    `json:"voter_id" bson:"_id"`
	Aadhar    string    `json:"aadhar" bson:"aadhar"`
	Name      string    `json:"name" bson:"name"`
	Photo     string    `json:"photo,omitempty" bson:"photo,omitempty"`
	HasVoted  bool      `json:"has_voted" bson:"has_voted"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Candidate represents a contestant with a running tally
type Candidate struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Party string `json:"party" bson:"party"`
	Photo string `json:"photo,omitempty" bson:"photo,omitempty"`
	Votes int    `json:"votes" bson:"votes"`
	// CreatedAt fixes listing order
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ElectionConfig is the singleton election state record
type ElectionConfig struct {
	Status   ElectionStatus `json:"status" bson:"status"`
	WinnerID string         `json:"winner_id,omitempty" bson:"winner_id,omitempty"`
	// VotesCast counts committed votes. Every vote writes it, which makes
	// concurrent lifecycle changes conflict with in-flight votes.
	VotesCast int `json:"votes_cast" bson:"votes_cast"`
	// Revision is bumped by every candidate change for the same reason:
	// a start racing a candidate delete must conflict on this record.
	Revision int64 `json:"-" bson:"revision"`
}

// DefaultElectionConfig returns the initial election state
func DefaultElectionConfig() ElectionConfig {
	return ElectionConfig{Status: StatusNotStarted}
}

// VoteCount is one row of the per-candidate tally
type VoteCount struct {
	Candidate Candidate `json:"candidate"`
	Votes     int       `json:"votes"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
