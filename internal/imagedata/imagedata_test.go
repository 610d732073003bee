package imagedata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hammamikhairi/badbar/internal/domain"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestFromFileEncodesImage(t *testing.T) {
	path := writeFile(t, "mojito.png", pngHeader)

	uri, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("uri = %q", uri)
	}

	mime, data, err := Decode(uri)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if mime != "image/png" || string(data) != string(pngHeader) {
		t.Fatalf("Decode = %q, %d bytes", mime, len(data))
	}
}

func TestFromFileRejectsNonImage(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("two parts rum, one part lime\n"))

	_, err := FromFile(path)
	if !errors.Is(err, domain.ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}

func TestEncodeGIF(t *testing.T) {
	uri, err := Encode([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/gif;base64,") {
		t.Fatalf("uri = %q", uri)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"plain url", "https://example.com/mojito.png"},
		{"no payload", "data:image/png;base64"},
		{"not base64 encoded", "data:image/png,rawbytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(tt.uri); !errors.Is(err, domain.ErrNotImage) {
				t.Fatalf("Decode(%q) err = %v, want ErrNotImage", tt.uri, err)
			}
		})
	}

	if _, _, err := Decode("data:image/png;base64,!!!"); err == nil {
		t.Fatal("expected error for corrupt base64")
	}
}

func TestInfo(t *testing.T) {
	uri, err := Encode(pngHeader)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	mime, size, err := Info(uri)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if mime != "image/png" || size != len(pngHeader) {
		t.Fatalf("Info = %q, %d", mime, size)
	}
}
