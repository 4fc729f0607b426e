package aadhaar

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// LayoutKind names the structure found in an inflated Secure QR buffer.
type LayoutKind int

const (
	// LayoutBinary is an optional version byte, a flag region and
	// length-prefixed text fields.
	LayoutBinary LayoutKind = iota + 1
	// LayoutText is printable text split on a control or punctuation
	// delimiter.
	LayoutText
	// LayoutUidai is the 0xFF-delimited layout starting with an ASCII
	// version tag such as "V2".
	LayoutUidai
)

func (k LayoutKind) String() string {
	switch k {
	case LayoutBinary:
		return "binary"
	case LayoutText:
		return "text"
	case LayoutUidai:
		return "uidai"
	default:
		return "unknown"
	}
}

// SignatureLength is the size of the RSA-2048 signature trailing a Secure QR.
const SignatureLength = 256

// SecureQrFields holds the raw, trimmed text fields of a Secure QR in card
// order together with the binary trailer, if any.
type SecureQrFields struct {
	Layout  LayoutKind
	Version int

	ReferenceId string
	Name        string
	DateOfBirth string
	Gender      string
	CareOf      string
	District    string
	Landmark    string
	House       string
	Location    string
	Pincode     string
	PostOffice  string
	State       string
	Street      string
	SubDistrict string
	Vtc         string

	// MobileLast4 is only present in V3 UIDAI layouts.
	MobileLast4 string

	// AddressParts is set by the text layout, which has no fixed address
	// order; it holds every address field in payload order and only the
	// pincode is lifted out into its own slot.
	AddressParts []string

	Photo     []byte
	Signature []byte
}

// Uid is the first run of up to twelve digits in the reference id. Secure
// QR reference ids start with the last four digits of the Aadhaar number.
func (f *SecureQrFields) Uid() string {
	return firstDigitRun(f.ReferenceId, AadhaarNumberLength)
}

func (f *SecureQrFields) hasIdentity() bool {
	return f.Name != "" || f.DateOfBirth != "" || f.Gender != "" || f.Uid() != ""
}

// addressFields lists the address slots in the order they appear on the card
// after reference id, name, date of birth and gender.
func (f *SecureQrFields) addressFields() []*string {
	return []*string{
		&f.CareOf, &f.District, &f.Landmark, &f.House, &f.Location, &f.Pincode,
		&f.PostOffice, &f.State, &f.Street, &f.SubDistrict, &f.Vtc,
	}
}

// orderedFields lists every text slot in card order.
func (f *SecureQrFields) orderedFields() []*string {
	return append([]*string{&f.ReferenceId, &f.Name, &f.DateOfBirth, &f.Gender}, f.addressFields()...)
}

// splitTrailer separates the holder photo from the trailing signature.
// reserved bytes directly before the signature (hashes) are dropped.
func (f *SecureQrFields) splitTrailer(trailer []byte, reserved int) {
	tail := SignatureLength + reserved
	switch {
	case len(trailer) > tail:
		f.Photo = trailer[:len(trailer)-tail]
		f.Signature = trailer[len(trailer)-SignatureLength:]
	case len(trailer) >= SignatureLength:
		f.Signature = trailer[len(trailer)-SignatureLength:]
	}
}

// decodeText reads UTF-8, falling back to ISO-8859-1 for byte sequences that
// are not valid UTF-8.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	result, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(result)
}
