package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies an error by the layer that produced it.
type Kind int

const (
	KindInternal Kind = iota
	// KindParse is malformed user input: dates, numbers.
	KindParse
	// KindValidation is well-formed input that breaks a rule: reason, arity, lock.
	KindValidation
	// KindBackend is a failed or non-success call to a collaborator.
	KindBackend
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindBackend:
		return "backend"
	default:
		return "internal"
	}
}

// CustomError represents a custom error with additional arguments and wrapping capability.
// The message is meant to be shown to the user as is; Error() carries the full context for logs.
type CustomError struct {
	kind    Kind
	message string
	args    map[string]interface{}
	wrapped error
}

// New creates a new CustomError instance of KindInternal.
func New(message string) *CustomError {
	return &CustomError{
		message: message,
		args:    make(map[string]interface{}),
	}
}

// Parse creates a KindParse error with a formatted message.
func Parse(format string, a ...interface{}) *CustomError {
	return New(fmt.Sprintf(format, a...)).As(KindParse)
}

// Validation creates a KindValidation error with a formatted message.
func Validation(format string, a ...interface{}) *CustomError {
	return New(fmt.Sprintf(format, a...)).As(KindValidation)
}

// Backend creates a KindBackend error with a formatted message.
func Backend(format string, a ...interface{}) *CustomError {
	return New(fmt.Sprintf(format, a...)).As(KindBackend)
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return e.fullErrorString()
}

// Message returns the bare message without args or wrapped errors.
func (e *CustomError) Message() string {
	return e.message
}

// Kind returns the error kind.
func (e *CustomError) Kind() Kind {
	return e.kind
}

// As sets the kind of the error.
func (e *CustomError) As(kind Kind) *CustomError {
	e.kind = kind
	return e
}

// Arg adds an argument to the error.
func (e *CustomError) Arg(key string, value interface{}) *CustomError {
	e.args[key] = value
	return e
}

// Wrap wraps another error (can be of the same type or a standard error).
func (e *CustomError) Wrap(err error) *CustomError {
	if err != nil {
		e.wrapped = err
	}
	return e
}

// Unwrap returns the wrapped error if any.
func (e *CustomError) Unwrap() error {
	return e.wrapped
}

// KindOf returns the kind of the outermost CustomError in the chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce.Kind()
	}
	return KindInternal
}

// MessageOf returns the user-facing message of the outermost CustomError in the chain.
// Errors of other types yield fallback.
func MessageOf(err error, fallback string) string {
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message() != "" {
		return ce.Message()
	}
	return fallback
}

// fullErrorString builds the error string in the desired format:
// "{kind: <kind>, msg: <message>, args: <args>, wrappedError: {<wrapped error>}}".
func (e *CustomError) fullErrorString() string {
	var builder strings.Builder

	builder.WriteString("{kind: ")
	builder.WriteString(e.kind.String())
	builder.WriteString(", msg: ")
	builder.WriteString(e.message)

	if len(e.args) > 0 {
		keys := make([]string, 0, len(e.args))
		for k := range e.args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s:%v", k, e.args[k]))
		}
		builder.WriteString(fmt.Sprintf(", args: map[%s]", strings.Join(pairs, " ")))
	}

	if e.wrapped != nil {
		var wrappedErr *CustomError
		if errors.As(e.wrapped, &wrappedErr) {
			builder.WriteString(fmt.Sprintf(", wrappedError: %s", wrappedErr.fullErrorString()))
		} else {
			builder.WriteString(fmt.Sprintf(", wrappedError: {%v}", e.wrapped.Error()))
		}
	}

	builder.WriteString("}")

	return builder.String()
}
