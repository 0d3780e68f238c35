package model

import (
	"errors"
	"fmt"
)

// Kind classifies import and render failures.
type Kind int

const (
	// KindParse is malformed or unsupported input data.
	KindParse Kind = iota + 1
	// KindReference is a document index that does not resolve.
	KindReference
	// KindResource is a failed GPU resource creation.
	KindResource
	// KindConfiguration is an explicitly unsupported feature combination.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindReference:
		return "reference error"
	case KindResource:
		return "resource error"
	case KindConfiguration:
		return "configuration error"
	}
	return "unknown error"
}

// Sentinels matching any *Error of the same Kind through errors.Is.
var (
	ErrParse         = &Error{Kind: KindParse}
	ErrReference     = &Error{Kind: KindReference}
	ErrResource      = &Error{Kind: KindResource}
	ErrConfiguration = &Error{Kind: KindConfiguration}
)

var (
	// ErrDuplicateAnimation reports two animations with the same name.
	ErrDuplicateAnimation = errors.New("duplicate animation name")
	// ErrUprightBillboard reports a keep-upright billboard, which is not supported.
	ErrUprightBillboard = errors.New("keep-upright billboards are not supported")
)

// Error is a classified model failure.
type Error struct {
	Kind Kind
	Op   string // what was being done, e.g. "load texture 3"
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

func parseErrorf(op string, format string, args ...any) error {
	return &Error{Kind: KindParse, Op: op, Err: fmt.Errorf(format, args...)}
}

func referenceErrorf(op string, format string, args ...any) error {
	return &Error{Kind: KindReference, Op: op, Err: fmt.Errorf(format, args...)}
}

func resourceError(op string, err error) error {
	return &Error{Kind: KindResource, Op: op, Err: err}
}

// checkIndex reports a reference error unless 0 <= i < n.
func checkIndex(op, what string, i, n int) error {
	if i < 0 || i >= n {
		return referenceErrorf(op, "%s index %d out of range [0, %d)", what, i, n)
	}
	return nil
}
