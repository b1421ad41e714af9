package tokenizer

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the errors a Context records.
type ErrorCode int

const (
	CodeNone ErrorCode = iota
	CodeInvalidInput
	CodeAllocation
	CodePatternCompile
	CodeCapacityExceeded
	CodeInvalidState
)

var codeNames = map[ErrorCode]string{
	CodeNone:             "none",
	CodeInvalidInput:     "invalid input",
	CodeAllocation:       "allocation failure",
	CodePatternCompile:   "pattern compile failure",
	CodeCapacityExceeded: "capacity exceeded",
	CodeInvalidState:     "invalid state",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Sentinel errors. Any *Error with the same code matches them under errors.Is.
var (
	ErrInvalidInput     = &Error{Code: CodeInvalidInput}
	ErrAllocation       = &Error{Code: CodeAllocation}
	ErrPatternCompile   = &Error{Code: CodePatternCompile}
	ErrCapacityExceeded = &Error{Code: CodeCapacityExceeded}
	ErrInvalidState     = &Error{Code: CodeInvalidState}
)

// More specific failures, each wrapped in an *Error carrying its code.
var (
	ErrNilContext      = errors.New("nil context")
	ErrClosed          = errors.New("context is closed")
	ErrInvalidCapacity = errors.New("capacity out of range")
	ErrInputTooLarge   = errors.New("input exceeds maximum length")
	ErrUnmatchedInput  = errors.New("input contains bytes no rule matches")
	ErrRuleCapacity    = errors.New("rule capacity exhausted")
	ErrIndexOutOfRange = errors.New("token index out of range")
	ErrReservedKind    = errors.New("reserved terminator kind")
	ErrNilRules        = errors.New("nil rules file")
)

// Error is the structured error a Context returns and remembers.
type Error struct {
	Code ErrorCode
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if msg == "" {
		msg = e.Code.String()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so callers can test the class
// with errors.Is(err, ErrCapacityExceeded).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Op == "" && t.Msg == "" && t.Err == nil
}

func newError(code ErrorCode, op string, err error, format string, args ...any) *Error {
	return &Error{
		Code: code,
		Op:   op,
		Msg:  fmt.Sprintf(format, args...),
		Err:  err,
	}
}

// CodeOf returns the code of err, CodeNone for nil and CodeInvalidState for
// errors that did not come from a Context.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInvalidState
}
