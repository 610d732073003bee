// Package imagedata turns image files into inline data URIs and back.
// Recipes carry their picture inline, so there is no blob storage.
package imagedata

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hammamikhairi/badbar/internal/domain"
)

// MaxBytes caps the size of an image accepted by FromFile.
const MaxBytes = 4 << 20

const scheme = "data:"

// ErrTooLarge is returned for images over MaxBytes.
var ErrTooLarge = errors.New("image too large")

// FromFile reads path and encodes it as a base64 data URI. The file must
// sniff as image/*; anything else fails with domain.ErrNotImage.
func FromFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	if info.Size() > MaxBytes {
		return "", fmt.Errorf("%s (%d bytes): %w", path, info.Size(), ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	uri, err := Encode(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return uri, nil
}

// Encode sniffs data and returns it as a data URI.
func Encode(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !isImage(mt) {
		return "", fmt.Errorf("detected %s: %w", mt.String(), domain.ErrNotImage)
	}
	// Drop parameters such as charset that some detectors attach.
	mime, _, _ := strings.Cut(mt.String(), ";")
	return scheme + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func isImage(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

// Decode parses a base64 data URI and returns its MIME type and payload.
func Decode(uri string) (mime string, data []byte, err error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", nil, fmt.Errorf("not a data URI: %w", domain.ErrNotImage)
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, scheme), ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI without payload: %w", domain.ErrNotImage)
	}
	mime, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return "", nil, fmt.Errorf("unsupported data URI encoding %q: %w", enc, domain.ErrNotImage)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding data URI: %w", err)
	}
	return mime, data, nil
}

// Info reports the MIME type and decoded size of a data URI.
func Info(uri string) (mime string, size int, err error) {
	mime, data, err := Decode(uri)
	if err != nil {
		return "", 0, err
	}
	return mime, len(data), nil
}
