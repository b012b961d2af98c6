package ai

import (
	"errors"
	"net/http"
)

// Kind classifies failures of a matching request.
type Kind int

const (
	KindUnavailable Kind = iota + 1
	KindTimeout
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "AI_UNAVAILABLE"
	case KindTimeout:
		return "AI_TIMEOUT"
	case KindParse:
		return "AI_PARSE_ERROR"
	default:
		return "AI_UNKNOWN"
	}
}

const (
	defaultUnavailableMessage = "Service IA indisponible. Veuillez vérifier Ollama."
	defaultTimeoutMessage     = "AI request timed out. Please try again."
	defaultParseMessage       = "Failed to parse AI response"
)

// Error is a terminal, user-facing failure of a single matching request.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is. Matching compares kinds only.
var (
	ErrUnavailable = &Error{Kind: KindUnavailable, Message: defaultUnavailableMessage}
	ErrTimeout     = &Error{Kind: KindTimeout, Message: defaultTimeoutMessage}
	ErrParse       = &Error{Kind: KindParse, Message: defaultParseMessage}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Unavailable returns an unavailable error wrapping the transport cause, if any.
func Unavailable(cause error) error {
	return &Error{Kind: KindUnavailable, Message: defaultUnavailableMessage, Err: cause}
}

// Timeout returns a timeout error.
func Timeout() error {
	return &Error{Kind: KindTimeout, Message: defaultTimeoutMessage}
}

// ParseError returns a parse error with the given message, wrapping cause when provided.
func ParseError(message string, cause error) error {
	if message == "" {
		message = defaultParseMessage
	}
	return &Error{Kind: KindParse, Message: message, Err: cause}
}

// Code returns the machine-readable code of an AI error, or an empty string for other errors.
func Code(err error) string {
	var aiErr *Error
	if !errors.As(err, &aiErr) {
		return ""
	}
	return aiErr.Kind.String()
}

// HTTPStatus maps an AI error to the status code the API layer answers with.
func HTTPStatus(err error) int {
	var aiErr *Error
	if !errors.As(err, &aiErr) {
		return http.StatusInternalServerError
	}
	switch aiErr.Kind {
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
