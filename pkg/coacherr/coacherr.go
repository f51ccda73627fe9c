// Package coacherr defines the error taxonomy of the generation pipeline.
//
// Every fatal error carries a short Dutch sentence safe to show to a coach
// and, separately, the underlying cause for logs. Raw provider errors and
// store errors never reach the caller; Message returns only the sentence.
package coacherr

import (
	"errors"
	"fmt"
	"strings"
)

// Standard user-facing messages.
const (
	MsgNotAuthorized  = "Niet geautoriseerd"
	MsgClientNotFound = "Client niet gevonden"
	MsgIntakeMissing  = "Intakeformulier ontbreekt voor deze client"
	MsgDataFetch      = "Gegevens konden niet worden opgehaald"
	MsgInference      = "De AI-dienst is momenteel niet bereikbaar, probeer het later opnieuw"
	MsgOutputFormat   = "Het AI-antwoord had geen geldig formaat"
	MsgNotApplicable  = "Deze aanbeveling kan niet automatisch worden toegepast"
	MsgUnexpected     = "Er is een onverwachte fout opgetreden"
	MsgInvalidRequest = "Ongeldig verzoek"
	MsgLogNotFound    = "Generatielog niet gevonden"
)

// AuthorizationError means the caller lacks the role or ownership.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return "not authorized"
	}
	return "not authorized: " + e.Reason
}

// DataFetchError means the store was unreachable or a hard prerequisite,
// such as the intake form, is missing.
type DataFetchError struct {
	UserMessage string
	Err         error
}

func (e *DataFetchError) Error() string {
	if e.Err == nil {
		return "data fetch: " + e.UserMessage
	}
	return "data fetch: " + e.Err.Error()
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// InferenceError means the remote model call failed or timed out.
type InferenceError struct {
	Provider string
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference (%s): %v", e.Provider, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// OutputFormatError means the model output could not be turned into the
// required shape, even after fragment extraction.
type OutputFormatError struct {
	Detail string
	Err    error
}

func (e *OutputFormatError) Error() string {
	if e.Err != nil {
		return "output format: " + e.Detail + ": " + e.Err.Error()
	}
	return "output format: " + e.Detail
}

func (e *OutputFormatError) Unwrap() error { return e.Err }

// ValidationError means caller-supplied input (a recommendation to apply,
// a program to commit) was rejected. Its message is shown as is.
type ValidationError struct {
	UserMessage string
	Fields      []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation: " + e.UserMessage
	}
	return "validation: " + e.UserMessage + " (" + strings.Join(e.Fields, ", ") + ")"
}

// ── Constructors ────────────────────────────────────────────

func NotAuthorized(reason string) error {
	return &AuthorizationError{Reason: reason}
}

func DataFetch(userMessage string, err error) error {
	return &DataFetchError{UserMessage: userMessage, Err: err}
}

func Inference(provider string, err error) error {
	return &InferenceError{Provider: provider, Err: err}
}

func OutputFormat(detail string, err error) error {
	return &OutputFormatError{Detail: detail, Err: err}
}

func Invalid(userMessage string, fields ...string) error {
	return &ValidationError{UserMessage: userMessage, Fields: fields}
}

// ── Classification ──────────────────────────────────────────

// Message returns the user-facing sentence for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var authErr *AuthorizationError
	var fetchErr *DataFetchError
	var infErr *InferenceError
	var fmtErr *OutputFormatError
	var valErr *ValidationError
	switch {
	case errors.As(err, &authErr):
		return MsgNotAuthorized
	case errors.As(err, &fetchErr):
		if fetchErr.UserMessage != "" {
			return fetchErr.UserMessage
		}
		return MsgDataFetch
	case errors.As(err, &infErr):
		return MsgInference
	case errors.As(err, &fmtErr):
		return MsgOutputFormat
	case errors.As(err, &valErr):
		if len(valErr.Fields) > 0 {
			return valErr.UserMessage + ": " + strings.Join(valErr.Fields, ", ")
		}
		return valErr.UserMessage
	default:
		return MsgUnexpected
	}
}

// Kind returns a stable machine-readable label for logs and metrics.
func Kind(err error) string {
	var authErr *AuthorizationError
	var fetchErr *DataFetchError
	var infErr *InferenceError
	var fmtErr *OutputFormatError
	var valErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return "authorization"
	case errors.As(err, &fetchErr):
		return "data_fetch"
	case errors.As(err, &infErr):
		return "inference"
	case errors.As(err, &fmtErr):
		return "output_format"
	case errors.As(err, &valErr):
		return "validation"
	default:
		return "internal"
	}
}
