package identity

import (
	"github.com/devmarvs/digibank/apperr"
)

// Kind classifies the outcome of an identity call.
type Kind int

const (
	// Success means the service accepted the request.
	Success Kind = iota
	// BusinessFailure means the service answered with a well-formed rejection.
	BusinessFailure
	// TransportFailure means no well-formed answer was obtained.
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case BusinessFailure:
		return "business_failure"
	default:
		return "transport_failure"
	}
}

// GenericFailureMessage is shown when the service could not be reached.
const GenericFailureMessage = "Something went wrong. Please try again."

// Result is the tagged outcome of an identity call. Value is meaningful only
// for Success, Code and Messages only for BusinessFailure, Cause only for
// TransportFailure.
type Result[T any] struct {
	Kind     Kind
	Value    T
	Code     string
	Messages []string
	Cause    error
}

func succeeded[T any](value T) Result[T] {
	return Result[T]{Kind: Success, Value: value}
}

func rejected[T any](code string, messages []string) Result[T] {
	return Result[T]{Kind: BusinessFailure, Code: code, Messages: messages}
}

func failed[T any](cause error) Result[T] {
	return Result[T]{Kind: TransportFailure, Cause: cause}
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Kind == Success
}

// Message returns the text to display for a failure: the first service
// message for a rejection, the generic message for a transport failure, and
// fallback when the service sent no message.
func (r Result[T]) Message(fallback string) string {
	switch r.Kind {
	case BusinessFailure:
		if len(r.Messages) > 0 && r.Messages[0] != "" {
			return r.Messages[0]
		}
		return fallback
	case TransportFailure:
		return GenericFailureMessage
	default:
		return ""
	}
}

// Err converts a failure into an *apperr.Error, or nil on success.
func (r Result[T]) Err(fallback string) error {
	switch r.Kind {
	case Success:
		return nil
	case BusinessFailure:
		return apperr.Rejected(r.Message(fallback))
	default:
		return apperr.Transport(r.Message(fallback), r.Cause)
	}
}
