package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ContentType sniffs the MIME type of path from its leading bytes.
func ContentType(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return m.String(), nil
}

// IsMediaType reports whether a sniffed MIME type can carry audio or video.
// Unrecognised containers come back as application/octet-stream, which is
// let through for FFmpeg to decide.
func IsMediaType(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	switch {
	case strings.HasPrefix(base, "audio/"), strings.HasPrefix(base, "video/"):
		return true
	case base == "application/octet-stream", base == "application/ogg", base == "application/vnd.rn-realmedia":
		return true
	default:
		return false
	}
}
