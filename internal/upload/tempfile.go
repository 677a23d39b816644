// Package upload stages user-provided audio on disk for the duration of
// one transcription request.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType marks an upload whose extension is not an accepted
// audio format.
var ErrUnsupportedType = errors.New("unsupported audio format")

var acceptedExts = []string{".wav", ".mp3", ".m4a", ".ogg", ".flac"}

// AcceptedExtensions lists the upload extensions the app accepts, in
// display order.
func AcceptedExtensions() []string {
	out := make([]string, len(acceptedExts))
	copy(out, acceptedExts)
	return out
}

// NormalizeExt extracts and validates the extension of an uploaded file
// name. The comparison is case-insensitive; the returned extension is
// lowercase with its leading dot.
func NormalizeExt(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, accepted := range acceptedExts {
		if ext == accepted {
			return ext, nil
		}
	}

	return "", fmt.Errorf("%w: %q (accepted: %s)", ErrUnsupportedType, filepath.Ext(filename), strings.Join(acceptedExts, ", "))
}

// A TempFile is a staged upload. Close removes it from disk; calling
// Close again is a no-op.
type TempFile struct {
	path    string
	removed bool
}

func (t *TempFile) Path() string { return t.path }

func (t *TempFile) Close() error {
	if t.removed {
		return nil
	}
	t.removed = true

	if err := os.Remove(t.path); err != nil {
		return fmt.Errorf("remove uploaded audio: %w", err)
	}
	return nil
}

// Save copies an upload into dir (the system temp directory when empty)
// under a unique name that keeps the original extension, which the speech
// engine relies on to pick a decoder.
func Save(dir string, src io.Reader, filename string) (*TempFile, error) {
	ext, err := NormalizeExt(filename)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write upload: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("close upload file: %w", err)
	}

	return &TempFile{path: f.Name()}, nil
}
