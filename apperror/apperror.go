// Package apperror defines the error taxonomy shared by services and controllers.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary that reports it to the user.
type Kind string

const (
	KindDecode     Kind = "decode"
	KindEncode     Kind = "encode"
	KindUpload     Kind = "upload"
	KindFetch      Kind = "fetch"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the text suitable for showing to the user.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Decode reports unreadable image input.
func Decode(op string, err error) *Error {
	return &Error{Kind: KindDecode, Op: op, Msg: "unable to decode image", Err: err}
}

// Encode reports a re-encode that produced no output.
func Encode(op string, err error) *Error {
	return &Error{Kind: KindEncode, Op: op, Msg: "unable to encode image", Err: err}
}

// Upload reports a failed blob write.
func Upload(op string, err error) *Error {
	return &Error{Kind: KindUpload, Op: op, Msg: "image upload failed", Err: err}
}

// Fetch reports a failed catalog retrieval.
func Fetch(op string, err error) *Error {
	return &Error{Kind: KindFetch, Op: op, Msg: "failed to load products", Err: err}
}

// Validation reports missing or malformed user input.
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// NotFound reports a missing record.
func NotFound(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

// KindOf returns the kind of the first classified error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return err.Error()
}
