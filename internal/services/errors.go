package services

import (
	stderrors "errors"

	"github.com/abrezinsky/avavote/internal/validation"
)

// Error codes, one per failure kind a caller must be able to tell apart
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeDuplicateRegistration = "DUPLICATE_REGISTRATION"
	CodeVoterNotFound         = "VOTER_NOT_FOUND"
	CodeAlreadyVoted          = "ALREADY_VOTED"
	CodeCandidateNotFound     = "CANDIDATE_NOT_FOUND"
	CodeElectionNotActive     = "ELECTION_NOT_ACTIVE"
	CodeElectionPrecondition  = "ELECTION_PRECONDITION_FAILED"
)

// Service errors
var (
	ErrValidation            = &ServiceError{Code: CodeValidation, Message: "Invalid input."}
	ErrDuplicateRegistration = &ServiceError{Code: CodeDuplicateRegistration, Message: "A user with this Aadhar or Voter ID already exists."}
	ErrVoterNotFound         = &ServiceError{Code: CodeVoterNotFound, Message: "Voter not found."}
	ErrAlreadyVoted          = &ServiceError{Code: CodeAlreadyVoted, Message: "This user has already voted."}
	ErrCandidateNotFound     = &ServiceError{Code: CodeCandidateNotFound, Message: "Candidate does not exist."}
	ErrElectionNotActive     = &ServiceError{Code: CodeElectionNotActive, Message: "The election is not currently active."}
	ErrElectionPrecondition  = &ServiceError{Code: CodeElectionPrecondition, Message: "The election is not in a state that allows this."}

	// Specific precondition failures. errors.Is matches each of them
	// against ErrElectionPrecondition.
	ErrNoCandidates       = &ServiceError{Code: CodeElectionPrecondition, Message: "At least one candidate is required."}
	ErrElectionInProgress = &ServiceError{Code: CodeElectionPrecondition, Message: "Candidates cannot be changed while the election is in progress."}
	ErrDeclareInProgress  = &ServiceError{Code: CodeElectionPrecondition, Message: "Stop the election before declaring the result."}
	ErrAlreadyDeclared    = &ServiceError{Code: CodeElectionPrecondition, Message: "The result has already been declared. Flush the election data to start over."}
	ErrVoterHasVoted      = &ServiceError{Code: CodeElectionPrecondition, Message: "A voter who has already voted cannot be deleted."}
	ErrCandidateHasVotes  = &ServiceError{Code: CodeElectionPrecondition, Message: "A candidate with recorded votes cannot be deleted."}
	ErrCandidateIsWinner  = &ServiceError{Code: CodeElectionPrecondition, Message: "The declared winner cannot be deleted."}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Is matches any ServiceError with the same code
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.Code == e.Code
}

// invalid converts a validation failure into a VALIDATION_ERROR carrying
// the field's message. Other errors are returned unchanged.
func invalid(err error) error {
	var vErr *validation.Error
	if stderrors.As(err, &vErr) {
		return &ServiceError{Code: CodeValidation, Message: vErr.Message}
	}
	return err
}
