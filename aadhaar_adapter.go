package main

import (
	"fmt"
	"log/slog"

	"go-aadhaar-scanner/document/aadhaar"
	"go-aadhaar-scanner/images"
	"go-aadhaar-scanner/models"
)

type SecureQrConfig struct {
	// FlagSkip selects how the flag bytes after the version marker are
	// skipped: "heuristic" (default) or "none".
	FlagSkip string `json:"flag_skip,omitempty"`
}

// QrDecoder turns a scanned QR payload into a record.
type QrDecoder interface {
	Decode(payload string) (*models.AadhaarRecord, error)
}

type PhotoConverter interface {
	ConvertToPNG(data []byte) (string, error)
}

type AadhaarDataConverter interface {
	ToAadhaarData(record *models.AadhaarRecord, photo string) (models.AadhaarData, error)
}

type AadhaarDataConverterImpl struct{}

func (AadhaarDataConverterImpl) ToAadhaarData(record *models.AadhaarRecord, photo string) (models.AadhaarData, error) {
	return aadhaar.ToAadhaarData(record, photo)
}

func newDecoder(config SecureQrConfig) (*aadhaar.Decoder, error) {
	strategy, ok := aadhaar.FlagSkipStrategyByName(config.FlagSkip)
	if !ok {
		return nil, fmt.Errorf("unknown flag skip strategy %q", config.FlagSkip)
	}
	slog.Debug("Secure QR decoder configured", "flag_skip", fmt.Sprintf("%T", strategy))
	return aadhaar.NewDecoder(aadhaar.WithFlagSkipStrategy(strategy)), nil
}

func newPhotoConverter() PhotoConverter {
	return images.PngConverter{}
}
