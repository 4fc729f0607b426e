package aadhaar

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a payload could not be decoded.
type ErrorKind int

const (
	InvalidInput ErrorKind = iota + 1
	UnrecognizedFormat
	NotSecureFormat
	DecompressionFailed
	NoMeaningfulData
	XmlParseError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case UnrecognizedFormat:
		return "unrecognized_format"
	case NotSecureFormat:
		return "not_secure_format"
	case DecompressionFailed:
		return "decompression_failed"
	case NoMeaningfulData:
		return "no_meaningful_data"
	case XmlParseError:
		return "xml_parse_error"
	default:
		return "unknown"
	}
}

// DecodeError is the only error type returned by the decoder.
type DecodeError struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches any DecodeError of the same kind, so the sentinels below work
// with errors.Is regardless of reason text.
func (e *DecodeError) Is(target error) bool {
	var t *DecodeError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidInput        = &DecodeError{Kind: InvalidInput, Reason: "payload is empty or too short"}
	ErrUnrecognizedFormat  = &DecodeError{Kind: UnrecognizedFormat, Reason: "payload is neither XML nor a Secure QR digit string"}
	ErrNotSecureFormat     = &DecodeError{Kind: NotSecureFormat, Reason: "digit string too short for a Secure QR"}
	ErrDecompressionFailed = &DecodeError{Kind: DecompressionFailed, Reason: "neither zlib nor raw deflate could inflate the payload"}
	ErrNoMeaningfulData    = &DecodeError{Kind: NoMeaningfulData, Reason: "no identity fields found"}
	ErrXmlParse            = &DecodeError{Kind: XmlParseError, Reason: "malformed XML payload"}
)

func newDecodeError(kind ErrorKind, reason string, err error) *DecodeError {
	return &DecodeError{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns the kind of a decoder error, or 0 if err did not come from
// this package.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
