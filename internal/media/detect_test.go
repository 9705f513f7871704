package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestContentType(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, []byte("show notes\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ContentType(text)
	if err != nil {
		t.Fatalf("ContentType failed: %v", err)
	}
	if IsMediaType(got) {
		t.Errorf("IsMediaType(%q) = true for a text file", got)
	}

	if _, err := ContentType(filepath.Join(dir, "missing.wav")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}
}

func TestIsMediaType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"audio/wav", true},
		{"video/mp4", true},
		{"audio/flac", true},
		{"application/ogg", true},
		{"application/octet-stream", true},
		{"text/plain; charset=utf-8", false},
		{"image/png", false},
		{"application/pdf", false},
	}
	for _, tt := range tests {
		if got := IsMediaType(tt.contentType); got != tt.want {
			t.Errorf("IsMediaType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}
