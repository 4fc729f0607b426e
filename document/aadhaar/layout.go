package aadhaar

import (
	"bytes"
	"fmt"
	"strings"
)

// bufferLayout reads the text fields out of an inflated Secure QR buffer.
// Exactly one implementation is chosen per buffer by selectLayout.
type bufferLayout interface {
	kind() LayoutKind
	read(buf []byte) (*SecureQrFields, error)
}

func selectLayout(buf []byte, flags FlagSkipStrategy) bufferLayout {
	switch {
	case len(buf) == 0:
		return binaryLayout{flags: flags}
	case isUidaiLayout(buf):
		return uidaiLayout{}
	case buf[0] >= '0' && buf[0] <= '9':
		return textLayout{}
	default:
		return binaryLayout{flags: flags}
	}
}

// --- binary ------------------------------------------------------------------

type binaryLayout struct {
	flags FlagSkipStrategy
}

func (binaryLayout) kind() LayoutKind { return LayoutBinary }

func (l binaryLayout) read(buf []byte) (*SecureQrFields, error) {
	fields := &SecureQrFields{Layout: LayoutBinary}

	cursor := 0
	if len(buf) > 0 && (buf[0] == 2 || buf[0] == 3) {
		fields.Version = int(buf[0])
		cursor = 1
	}
	if l.flags != nil {
		cursor = l.flags.SkipFlags(buf, cursor)
	}

	r := &lengthPrefixedReader{buf: buf, pos: cursor}
	for _, slot := range fields.orderedFields() {
		*slot = r.next()
	}
	fields.splitTrailer(buf[r.pos:], 0)

	return fields, nil
}

// lengthPrefixedReader reads fields made of one length byte followed by that
// many bytes of text. A length of 0 or 255 is an empty field. A length that
// runs past the end yields an empty field and exhausts the reader.
type lengthPrefixedReader struct {
	buf []byte
	pos int
}

func (r *lengthPrefixedReader) next() string {
	if r.pos >= len(r.buf) {
		return ""
	}
	n := int(r.buf[r.pos])
	if n == 0 || n == 0xFF {
		r.pos++
		return ""
	}
	start := r.pos + 1
	if start+n > len(r.buf) {
		r.pos = len(r.buf)
		return ""
	}
	r.pos = start + n
	return strings.TrimSpace(decodeText(r.buf[start:r.pos]))
}

// --- delimited text ----------------------------------------------------------

// Candidate delimiters, most specific first.
var textDelimiters = []string{"\x1e", "\x1c", "\x1d", "\x1f", "\x00", "|", "\n", ","}

// A delimiter must yield more than this many non-empty fields to be chosen.
const minTextFields = 5

type textLayout struct{}

func (textLayout) kind() LayoutKind { return LayoutText }

func (textLayout) read(buf []byte) (*SecureQrFields, error) {
	text := decodeText(buf)

	var parts []string
	for _, delim := range textDelimiters {
		candidate := splitNonEmpty(text, delim)
		if len(candidate) > minTextFields {
			parts = candidate
			break
		}
	}
	if parts == nil {
		return nil, fmt.Errorf("no delimiter yields more than %d fields", minTextFields)
	}

	fields := &SecureQrFields{Layout: LayoutText}
	fields.ReferenceId = parts[0]
	fields.Name = parts[1]
	fields.DateOfBirth = parts[2]
	fields.Gender = parts[3]
	fields.AddressParts = parts[4:]

	for _, p := range fields.AddressParts {
		if isPincode(p) {
			fields.Pincode = p
			break
		}
	}

	return fields, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- UIDAI 0xFF delimited ----------------------------------------------------

const uidaiDelimiter = 0xFF

// Text fields before the photo: version tag, email/mobile indicator, then
// the card fields. V3 appends the last four mobile digits.
const (
	uidaiV2FieldCount = 2 + 15
	uidaiV3FieldCount = uidaiV2FieldCount + 1
	uidaiHashLength   = 32
)

func isUidaiLayout(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 'V' && buf[1] >= '0' && buf[1] <= '9' && buf[2] == uidaiDelimiter
}

type uidaiLayout struct{}

func (uidaiLayout) kind() LayoutKind { return LayoutUidai }

func (uidaiLayout) read(buf []byte) (*SecureQrFields, error) {
	fields := &SecureQrFields{Layout: LayoutUidai, Version: int(buf[1] - '0')}

	count := uidaiV2FieldCount
	if fields.Version >= 3 {
		count = uidaiV3FieldCount
	}

	// The photo may contain 0xFF bytes, so only the text fields are split.
	raw := make([]string, 0, count)
	pos := 0
	for len(raw) < count {
		idx := bytes.IndexByte(buf[pos:], uidaiDelimiter)
		if idx < 0 {
			break
		}
		raw = append(raw, strings.TrimSpace(decodeText(buf[pos:pos+idx])))
		pos += idx + 1
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("truncated UIDAI header: %d fields", len(raw))
	}

	slots := fields.orderedFields()
	for i, v := range raw[2:] {
		if i < len(slots) {
			*slots[i] = v
		} else {
			fields.MobileLast4 = v
		}
	}

	fields.splitTrailer(buf[pos:], uidaiHashBytes(raw[1]))
	return fields, nil
}

// uidaiHashBytes returns how many hash bytes sit between the photo and the
// signature: bit 0 of the indicator marks an email hash, bit 1 a mobile hash.
func uidaiHashBytes(indicator string) int {
	if len(indicator) != 1 || indicator[0] < '0' || indicator[0] > '3' {
		return 0
	}
	bits := int(indicator[0] - '0')
	n := 0
	if bits&1 != 0 {
		n += uidaiHashLength
	}
	if bits&2 != 0 {
		n += uidaiHashLength
	}
	return n
}
