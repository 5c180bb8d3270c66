// Package photo stores attendance selfies on local disk as JPEG files.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/webp"
)

const jpegQuality = 85

var (
	ErrEmpty       = errors.New("empty photo payload")
	ErrEncoding    = errors.New("photo must be base64 encoded")
	ErrUnsupported = errors.New("photo must be png, jpeg, or webp")
	ErrTooLarge    = errors.New("photo exceeds max size")
)

var allowedMimes = []string{"image/jpeg", "image/png", "image/webp"}

type Store struct {
	Dir       string
	URLPrefix string
	MaxBytes  int
}

func NewStore(dir, urlPrefix string, maxBytes int) *Store {
	return &Store{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/"), MaxBytes: maxBytes}
}

// Save decodes the payload, re-encodes it as JPEG, and returns the public
// reference of the written file.
func (s *Store) Save(employeeID, event, payload string, at time.Time) (string, error) {
	raw, err := Decode(payload, s.MaxBytes)
	if err != nil {
		return "", err
	}
	img, err := decodeImage(raw)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	name := Filename(employeeID, event, at)
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), out.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return s.URLPrefix + "/" + name, nil
}

// Remove deletes a file previously returned by Save. Missing files are ignored.
func (s *Store) Remove(ref string) error {
	name := path.Base(ref)
	if name == "." || name == "/" || !strings.HasPrefix(ref, s.URLPrefix+"/") {
		return fmt.Errorf("photo reference %q is outside %s", ref, s.URLPrefix)
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func Filename(employeeID, event string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d.jpg", sanitize(employeeID), sanitize(event), at.UnixMilli())
}

func sanitize(value string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, value)
}

// Decode accepts a data URI ("data:image/png;base64,...") or bare base64 and
// returns the image bytes after checking the declared and sniffed content types.
func Decode(payload string, maxBytes int) ([]byte, error) {
	raw := strings.TrimSpace(payload)
	if raw == "" {
		return nil, ErrEmpty
	}

	declared := ""
	if strings.HasPrefix(raw, "data:") {
		comma := strings.Index(raw, ",")
		if comma <= 5 {
			return nil, ErrEncoding
		}
		meta := raw[5:comma]
		raw = raw[comma+1:]
		if !strings.HasSuffix(strings.ToLower(meta), ";base64") {
			return nil, ErrEncoding
		}
		declared = normalizeMime(meta[:len(meta)-len(";base64")])
		if !allowed(declared) {
			return nil, ErrUnsupported
		}
	}

	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(raw)) > maxBytes+2 {
		return nil, ErrTooLarge
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrEncoding
	}
	if len(decoded) == 0 {
		return nil, ErrEmpty
	}
	if maxBytes > 0 && len(decoded) > maxBytes {
		return nil, ErrTooLarge
	}

	detected := http.DetectContentType(decoded)
	if !allowed(detected) {
		return nil, ErrUnsupported
	}
	if declared != "" && !strings.EqualFold(declared, detected) {
		return nil, fmt.Errorf("%w: declared %s but content is %s", ErrUnsupported, declared, detected)
	}
	return decoded, nil
}

// normalizeMime maps the non-standard image/jpg some mobile webviews emit.
func normalizeMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "image/jpg" || mime == "image/pjpeg" {
		return "image/jpeg"
	}
	return mime
}

func allowed(mime string) bool {
	for _, candidate := range allowedMimes {
		if strings.EqualFold(candidate, mime) {
			return true
		}
	}
	return false
}

func decodeImage(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err == nil {
		return img, nil
	}
	if decoded, webpErr := webp.Decode(bytes.NewReader(raw)); webpErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode photo: %w", err)
}
