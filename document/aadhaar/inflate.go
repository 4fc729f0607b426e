package aadhaar

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"log/slog"
)

// MaxInflatedSize bounds the output of a single decompression attempt. A QR
// code holds a few kilobytes, so anything near this limit is not a card.
const MaxInflatedSize = 1 << 20

// InflateMode records which stream format produced the inflated buffer.
type InflateMode string

const (
	InflateZlib InflateMode = "zlib"
	InflateGzip InflateMode = "gzip"
	InflateRaw  InflateMode = "raw"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Inflate decompresses data, trying a wrapped stream first (zlib, or gzip
// when the gzip magic is present) and then a headerless deflate stream.
func Inflate(data []byte) ([]byte, InflateMode, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("no data to inflate")
	}

	wrappedMode := InflateZlib
	if bytes.HasPrefix(data, gzipMagic) {
		wrappedMode = InflateGzip
	}

	out, wrappedErr := inflateWrapped(data, wrappedMode)
	if wrappedErr == nil {
		return out, wrappedMode, nil
	}
	slog.Debug("Wrapped inflate failed, trying raw deflate", "mode", wrappedMode, "error", wrappedErr)

	out, rawErr := readBounded(flate.NewReader(bytes.NewReader(data)))
	if rawErr == nil {
		return out, InflateRaw, nil
	}

	return nil, "", fmt.Errorf("%s: %v; raw: %v", wrappedMode, wrappedErr, rawErr)
}

func inflateWrapped(data []byte, mode InflateMode) ([]byte, error) {
	var (
		rc  io.ReadCloser
		err error
	)
	if mode == InflateGzip {
		rc, err = gzip.NewReader(bytes.NewReader(data))
	} else {
		rc, err = zlib.NewReader(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	return readBounded(rc)
}

func readBounded(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()

	out, err := io.ReadAll(io.LimitReader(rc, MaxInflatedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxInflatedSize {
		return nil, fmt.Errorf("inflated data exceeds %d bytes", MaxInflatedSize)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("inflated to zero bytes")
	}
	return out, nil
}
