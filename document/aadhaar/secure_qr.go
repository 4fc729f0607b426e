package aadhaar

import (
	"log/slog"

	"github.com/gmrtd/gmrtd/utils"
)

// MinSecureQrDigits is the shortest digit string treated as a Secure QR.
const MinSecureQrDigits = 100

const debugHeadLength = 16

// ReadSecureQr runs the Secure QR pipeline: decimal to bytes, inflate, then
// the field layout selected by the leading byte of the inflated buffer.
func ReadSecureQr(digits string, flags FlagSkipStrategy) (*SecureQrFields, error) {
	if len(digits) < MinSecureQrDigits || !isAllDigits(digits) {
		return nil, newDecodeError(NotSecureFormat, "digit string too short for a Secure QR", nil)
	}

	compressed, err := DecimalToBytes(digits)
	if err != nil {
		return nil, newDecodeError(NotSecureFormat, "failed to convert digit string", err)
	}
	slog.Debug("Secure QR digits converted", "digits", len(digits), "bytes", len(compressed))

	inflated, mode, err := Inflate(compressed)
	if err != nil {
		return nil, newDecodeError(DecompressionFailed, "neither zlib nor raw deflate could inflate the payload", err)
	}

	layout := selectLayout(inflated, flags)
	slog.Debug("Secure QR inflated",
		"mode", mode,
		"size", len(inflated),
		"layout", layout.kind(),
		"head", utils.BytesToHex(inflated[:min(len(inflated), debugHeadLength)]))

	fields, err := layout.read(inflated)
	if err != nil {
		return nil, newDecodeError(NoMeaningfulData, "failed to read "+layout.kind().String()+" layout", err)
	}
	if !fields.hasIdentity() {
		return nil, newDecodeError(NoMeaningfulData, "no identity fields found", nil)
	}

	slog.Debug("Secure QR fields read",
		"layout", fields.Layout,
		"version", fields.Version,
		"photo_bytes", len(fields.Photo),
		"signature_bytes", len(fields.Signature))
	return fields, nil
}
