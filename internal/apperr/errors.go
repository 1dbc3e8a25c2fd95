// Package apperr defines the error taxonomy shared by the scoring engine and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is malformed input, rejected before any storage mutation.
	KindValidation
	// KindNotEligible is a well-formed request the rules refuse, including duplicate interactions.
	KindNotEligible
	KindNotFound
	// KindStorage is a failure of the entity store or the blob store.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotEligible:
		return "not_eligible"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Code is a machine-readable reason.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Validation
	CodeTitleRequired   Code = "TITLE_REQUIRED"
	CodeTitleTooLong    Code = "TITLE_TOO_LONG"
	CodeImageRequired   Code = "IMAGE_REQUIRED"
	CodeImageInvalid    Code = "IMAGE_INVALID"
	CodeThemeRequired   Code = "THEME_REQUIRED"
	CodeInvalidSchedule Code = "INVALID_SCHEDULE"
	CodeInvalidID       Code = "INVALID_ID"

	// Eligibility
	CodeEventNotOngoing  Code = "EVENT_NOT_ONGOING"
	CodeEventEnded       Code = "EVENT_ENDED"
	CodeSelfInteraction  Code = "SELF_INTERACTION"
	CodeSameTeam         Code = "SAME_TEAM"
	CodeNotParticipant   Code = "NOT_PARTICIPANT"
	CodeUploadNotOpen    Code = "UPLOAD_NOT_OPEN"
	CodeAlreadyLiked     Code = "ALREADY_LIKED"
	CodeAlreadyAttacked  Code = "ALREADY_ATTACKED"
	CodeWrongEvent       Code = "WRONG_EVENT"
	CodeCounterArtNeeded Code = "COUNTER_ART_REQUIRED"

	// Lookup
	CodeEventNotFound   Code = "EVENT_NOT_FOUND"
	CodeArtworkNotFound Code = "ARTWORK_NOT_FOUND"
	CodeProfileNotFound Code = "PROFILE_NOT_FOUND"

	CodeStorage Code = "STORAGE_FAILURE"
)

type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code Code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotEligible(code Code, message string) *Error {
	return &Error{Kind: KindNotEligible, Code: code, Message: message}
}

func NotFound(code Code, message string, err error) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message, Err: err}
}

func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: message, Err: err}
}

// KindOf returns KindStorage for errors outside the taxonomy, an unclassified failure is treated as
// the store being unavailable.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// Message returns the user-facing text of a taxonomy error and a generic text otherwise.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorage {
		return e.Message
	}
	return "Something went wrong, please try again"
}
