package value

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ErrDecode is matched by every DecodeError.
var ErrDecode = errors.New("decode failed")

// DecodeError reports that stored bytes could not be decoded as the
// requested kind. It deliberately does not carry the raw bytes.
type DecodeError struct {
	Kind  Kind
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("decode %s", e.Kind)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrDecode or another DecodeError.
func (e *DecodeError) Is(target error) bool {
	if target == ErrDecode {
		return true
	}
	_, ok := target.(*DecodeError)
	return ok
}

// Decoder converts stored bytes into a typed value.
type Decoder[T any] func(raw []byte) (T, error)

var errInvalidUTF8 = errors.New("invalid UTF-8")

// DecodeText decodes raw as UTF-8 text.
func DecodeText(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", &DecodeError{Kind: KindText, Cause: errInvalidUTF8}
	}
	return string(raw), nil
}

// DecodeBytes returns a copy of raw.
func DecodeBytes(raw []byte) ([]byte, error) {
	return append([]byte(nil), raw...), nil
}

// DecodeInt parses raw as a base-10 signed integer.
func DecodeInt(raw []byte) (int64, error) {
	i, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, &DecodeError{Kind: KindInt, Cause: stripNum(err)}
	}
	return i, nil
}

// DecodeFloat parses raw as a 64-bit float.
func DecodeFloat(raw []byte) (float64, error) {
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, &DecodeError{Kind: KindFloat, Cause: stripNum(err)}
	}
	return f, nil
}

// stripNum drops the offending input from strconv errors so stored content
// does not leak through error messages.
func stripNum(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return fmt.Errorf("%s: %w", numErr.Func, numErr.Err)
	}
	return err
}
