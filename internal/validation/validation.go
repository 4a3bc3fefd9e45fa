// Package validation enforces the input contracts for identifiers and
// free-text fields before they reach the services.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// User-facing messages for rejected input
const (
	MsgAadharRequired  = "Aadhar number is required."
	MsgAadharInvalid   = "Invalid Aadhar. Must be 12 digits and not start with 0 or 1."
	MsgVoterIDRequired = "Voter ID is required."
	MsgVoterIDInvalid  = "Invalid Voter ID. Expected format: ABC1234567."
	MsgNameRequired    = "Full name is required."
)

var (
	aadharPattern  = regexp.MustCompile(`^[2-9]\d{11}$`)
	voterIDPattern = regexp.MustCompile(`^[A-Z]{3}\d{7}$`)

	nonDigit    = regexp.MustCompile(`\D`)
	nonAlphaNum = regexp.MustCompile(`[^A-Z0-9]`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("aadhar", func(fl validator.FieldLevel) bool {
		return aadharPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("voterid", func(fl validator.FieldLevel) bool {
		return voterIDPattern.MatchString(fl.Field().String())
	})
	// Report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Error describes the first rejected field
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Struct validates s against its `validate` tags. Only the first violation
// is reported, as *Error.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Message: message(fe.Field(), fe.Tag(), fe.Param())}
}

// Aadhar checks a 12-digit Aadhar number that does not start with 0 or 1
func Aadhar(aadhar string) error {
	if err := validate.Var(aadhar, "required,aadhar"); err != nil {
		return fieldError("aadhar", err)
	}
	return nil
}

// VoterID checks a voter ID of three capital letters and seven digits
func VoterID(voterID string) error {
	if err := validate.Var(voterID, "required,voterid"); err != nil {
		return fieldError("voter_id", err)
	}
	return nil
}

// NormalizeAadhar drops everything but digits, so "2345 6789 0123" is accepted
func NormalizeAadhar(aadhar string) string {
	return nonDigit.ReplaceAllString(aadhar, "")
}

// NormalizeVoterID upper-cases and drops separators
func NormalizeVoterID(voterID string) string {
	return nonAlphaNum.ReplaceAllString(strings.ToUpper(voterID), "")
}

func fieldError(field string, err error) error {
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return &Error{Field: field, Message: message(field, fieldErrs[0].Tag(), fieldErrs[0].Param())}
	}
	return err
}

func message(field, tag, param string) string {
	switch field {
	case "aadhar":
		if tag == "required" {
			return MsgAadharRequired
		}
		return MsgAadharInvalid
	case "voter_id":
		if tag == "required" {
			return MsgVoterIDRequired
		}
		return MsgVoterIDInvalid
	case "name":
		if tag == "required" {
			return MsgNameRequired
		}
	}

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required.", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", field, param)
	default:
		return fmt.Sprintf("%s is invalid.", field)
	}
}
