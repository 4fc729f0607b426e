package aadhaar

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"go-aadhaar-scanner/models"
)

// MinPayloadLength is the shortest payload, in characters, worth decoding.
const MinPayloadLength = 10

const (
	FormatSecureQr = "secure_qr"
	FormatXml      = "xml"
)

// Decoder turns scanned Aadhaar QR payloads into records. It holds only
// configuration and is safe for concurrent use.
type Decoder struct {
	flags FlagSkipStrategy
}

type Option func(*Decoder)

// WithFlagSkipStrategy replaces the heuristic used to step over the Secure
// QR flag region.
func WithFlagSkipStrategy(s FlagSkipStrategy) Option {
	return func(d *Decoder) {
		if s != nil {
			d.flags = s
		}
	}
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{flags: HeuristicFlagSkip{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDecoder = NewDecoder()

// DecodeAadhaarQr decodes a payload with the default decoder.
func DecodeAadhaarQr(payload string) (*models.AadhaarRecord, error) {
	return defaultDecoder.Decode(payload)
}

// Decode classifies the payload and dispatches it to the XML or Secure QR
// reader. On failure the record is nil and the error is a *DecodeError.
func (d *Decoder) Decode(payload string) (*models.AadhaarRecord, error) {
	trimmed := strings.TrimSpace(payload)
	if utf8.RuneCountInString(trimmed) < MinPayloadLength {
		return nil, newDecodeError(InvalidInput, "payload is empty or too short", nil)
	}

	switch {
	case strings.HasPrefix(trimmed, "<") || strings.Contains(trimmed, "<?xml"):
		slog.Debug("Classified QR payload as XML", "length", len(trimmed))
		return d.decodeXml(trimmed)

	case isAllDigits(trimmed):
		slog.Debug("Classified QR payload as Secure QR", "length", len(trimmed))
		return d.decodeSecure(trimmed)

	case strings.Contains(trimmed, "<"):
		slog.Debug("QR payload contains markup, trying XML fallback", "length", len(trimmed))
		record, err := d.decodeXml(trimmed)
		if err != nil {
			return nil, newDecodeError(UnrecognizedFormat, "XML fallback failed", err)
		}
		return record, nil

	default:
		slog.Debug("QR payload format not recognized", "length", len(trimmed))
		return nil, newDecodeError(UnrecognizedFormat, "payload is neither XML nor a Secure QR digit string", nil)
	}
}

func (d *Decoder) decodeXml(payload string) (*models.AadhaarRecord, error) {
	fields, err := ReadXmlAttributes(payload)
	if err != nil {
		return nil, err
	}
	return xmlRecord(fields), nil
}

func (d *Decoder) decodeSecure(digits string) (*models.AadhaarRecord, error) {
	fields, err := ReadSecureQr(digits, d.flags)
	if err != nil {
		return nil, err
	}
	return secureRecord(fields), nil
}

func xmlRecord(f *XmlFields) *models.AadhaarRecord {
	components := &models.AddressComponents{
		CareOf:      f.CareOf,
		House:       f.House,
		Street:      f.Street,
		Landmark:    f.Landmark,
		Location:    f.Location,
		PostOffice:  f.PostOffice,
		Vtc:         f.Vtc,
		SubDistrict: f.SubDistrict,
		District:    f.District,
		State:       f.State,
		Pincode:     f.Pincode,
	}

	record := &models.AadhaarRecord{
		Uid:               digitsOnly(f.Uid, AadhaarNumberLength),
		DateOfBirth:       NormalizeDateOfBirth(f.Dob, f.Yob),
		Gender:            NormalizeGender(f.Gender),
		Address:           AssembleAddress(components),
		AddressComponents: components,
		Format:            FormatXml,
	}
	record.FirstName, record.MiddleName, record.LastName = SplitName(f.Name)
	return record
}

func secureRecord(f *SecureQrFields) *models.AadhaarRecord {
	components := &models.AddressComponents{
		CareOf:      f.CareOf,
		House:       f.House,
		Street:      f.Street,
		Landmark:    f.Landmark,
		Location:    f.Location,
		PostOffice:  f.PostOffice,
		Vtc:         f.Vtc,
		SubDistrict: f.SubDistrict,
		District:    f.District,
		State:       f.State,
		Pincode:     f.Pincode,
	}

	address := AssembleAddress(components)
	if f.Layout == LayoutText {
		address = joinAddress(f.AddressParts...)
	}

	record := &models.AadhaarRecord{
		Uid:               f.Uid(),
		DateOfBirth:       NormalizeDateOfBirth(f.DateOfBirth, ""),
		Gender:            NormalizeGender(f.Gender),
		Address:           address,
		AddressComponents: components,
		Format:            FormatSecureQr,
		SecureQrVersion:   f.Version,
		Photo:             f.Photo,
	}
	record.FirstName, record.MiddleName, record.LastName = SplitName(f.Name)
	return record
}
