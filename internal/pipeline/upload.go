package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/scan-annotate-mcp/internal/storage"
)

// UploadPrefix starts the name of every staged upload.
const UploadPrefix = "quick_"

const uploadTimeLayout = "20060102_150405"

// ErrUploadTooLarge is returned when an upload exceeds the staging limit.
var ErrUploadTooLarge = errors.New("upload exceeds size limit")

// UploadName returns the staged file name for an upload received at now:
// quick_YYYYMMDD_HHMMSS_<sanitized name>.
func UploadName(name string, now time.Time) (string, error) {
	clean := SanitizeFilename(name)
	if err := storage.ValidateName(clean); err != nil {
		return "", err
	}
	return UploadPrefix + now.Format(uploadTimeLayout) + "_" + clean, nil
}

// StageUpload copies an incoming image into dir under its UploadName and
// returns the staged path. Reads beyond maxBytes fail with ErrUploadTooLarge
// and leave nothing behind; a non-positive maxBytes disables the limit.
func StageUpload(dir, name string, r io.Reader, now time.Time, maxBytes int64) (string, error) {
	staged, err := UploadName(name, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(dir, staged)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload: %w", err)
	}

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && maxBytes > 0 && n > maxBytes {
		err = fmt.Errorf("%w: more than %d bytes", ErrUploadTooLarge, maxBytes)
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// SanitizeFilename reduces name to a safe base name: directories are
// dropped, whitespace becomes '_', and anything other than ASCII letters,
// digits, '.', '_' and '-' is removed. Leading dots and underscores are
// trimmed so the result is never hidden.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '\t':
			return '_'
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return -1
		}
	}, name)
	return strings.TrimLeft(clean, "._")
}
