package token

import "fmt"

// Code is the wire-level error taxonomy. Every Master RPC either succeeds
// or fails with exactly one of these.
type Code int

const (
	CodeUnknown Code = iota
	CodeVersionConflict
	CodeNotFound
	CodeInputError
)

func (c Code) String() string {
	switch c {
	case CodeVersionConflict:
		return "VERSION_CONFLICT"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeInputError:
		return "INPUT_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the internal representation of a Master RPC failure. The gRPC
// boundary (pkg/master/grpc) translates this into a status code;
// clients translate the status code back into an Error of the same Code.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(c Code, format string, args ...interface{}) *Error {
	return &Error{Code: c, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err is a *Error carrying code c.
func IsCode(err error, c Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == c
}
