package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abrezinsky/avavote/internal/errors"
	"github.com/abrezinsky/avavote/internal/services"
)

// Error codes for API error responses. Service failures use the service
// error code unchanged.
const (
	ErrCodeBadRequest             = "BAD_REQUEST"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodePersistenceUnavailable = "PERSISTENCE_UNAVAILABLE"
	ErrCodeInternalServer         = "INTERNAL_SERVER_ERROR"
)

// maxBodyBytes fits a 2 MB data URL photo plus the JSON around it
const maxBodyBytes = 4 << 20

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrInvalidCredentials = &APIError{Status: http.StatusUnauthorized, Code: ErrCodeInvalidCredentials, Message: "Invalid Aadhar or Voter ID."}
	ErrUnavailable        = &APIError{Status: http.StatusServiceUnavailable, Code: ErrCodePersistenceUnavailable, Message: "The election service is temporarily unavailable. Please try again."}
	ErrInternalServer     = &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
)

// NewAPIError creates a new API error with custom message and code
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// Unauthorized creates a 401 error with custom message
func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: message}
}

// statusForCode maps service error codes to HTTP statuses
var statusForCode = map[string]int{
	services.CodeValidation:            http.StatusBadRequest,
	services.CodeDuplicateRegistration: http.StatusConflict,
	services.CodeVoterNotFound:         http.StatusNotFound,
	services.CodeAlreadyVoted:          http.StatusConflict,
	services.CodeCandidateNotFound:     http.StatusNotFound,
	services.CodeElectionNotActive:     http.StatusConflict,
	services.CodeElectionPrecondition:  http.StatusConflict,
}

// ToAPIError converts service and storage errors to API errors. Each
// failure kind keeps its own code so clients can tell them apart.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var svcErr *services.ServiceError
	if stderrors.As(err, &svcErr) {
		status, ok := statusForCode[svcErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		return &APIError{Status: status, Code: svcErr.Code, Message: svcErr.Message}
	}

	if errors.IsKind(err, errors.ErrUnavailable) || stderrors.Is(err, context.DeadlineExceeded) {
		return ErrUnavailable
	}
	return ErrInternalServer
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondCreated writes a 201 Created JSON response
func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, data)
}

// respondSuccess writes a 200 OK with a message
func respondSuccess(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// respondDeleted writes a 204 No Content response
func respondDeleted(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// respondError converts err and writes it. Server-side failures are logged
// with the request id; their details never reach the client.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := ToAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		h.Log.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"status", apiErr.Status,
			"error", err,
		)
	}
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON decodes a size-limited JSON body into target
func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case err == io.EOF:
			return BadRequest("Request body is empty")
		case stderrors.As(err, &tooLarge):
			return NewAPIError(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Request body is too large")
		default:
			return BadRequest("Invalid JSON: " + err.Error())
		}
	}
	return nil
}

// pathParam extracts a required URL parameter
func pathParam(r *http.Request, name string) (string, error) {
	param := chi.URLParam(r, name)
	if param == "" {
		return "", BadRequest("Missing " + name + " parameter")
	}
	return param, nil
}
