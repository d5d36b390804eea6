package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	xdraw "golang.org/x/image/draw"
)

// ThumbnailMaxSize bounds both thumbnail dimensions.
const ThumbnailMaxSize = 400

// ThumbnailPrefix is prepended to the stored filename of a thumbnail.
const ThumbnailPrefix = "thumb_"

var (
	ErrExtensionNotAllowed = errors.New("only jpg, jpeg, png and gif images are allowed")
	ErrContentNotImage     = errors.New("file content is not a supported image")
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// AllowedExtension reports whether filename carries an accepted image extension.
func AllowedExtension(filename string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// DetectImageType checks filename's extension and content's sniffed type.
// It returns the sniffed MIME type.
func DetectImageType(filename string, content []byte) (string, error) {
	if !AllowedExtension(filename) {
		return "", ErrExtensionNotAllowed
	}
	detected := mimetype.Detect(content)
	for _, allowed := range []string{"image/jpeg", "image/png", "image/gif"} {
		if detected.Is(allowed) {
			return allowed, nil
		}
	}
	return "", ErrContentNotImage
}

// SanitizeFilename reduces name to a safe ASCII basename of letters, digits, '.', '_' and '-'.
// Runs of whitespace become '_'. Leading dots and underscores are dropped.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)

	var b strings.Builder
	for _, field := range strings.Fields(name) {
		if b.Len() > 0 {
			b.WriteByte('_')
		}
		for _, r := range field {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
				b.WriteRune(r)
			}
		}
	}
	return strings.TrimLeft(b.String(), "._")
}

// StoredFilename prefixes the sanitized name with a timestamp so uploads never collide:
// YYYYMMDDHHMMSS + six-digit microseconds + "_" + name.
func StoredFilename(now time.Time, original string) string {
	safe := SanitizeFilename(original)
	if strings.TrimSuffix(safe, filepath.Ext(safe)) == "" || !AllowedExtension(safe) {
		safe = "image" + strings.ToLower(filepath.Ext(original))
	}
	return fmt.Sprintf("%s%06d_%s", now.Format("20060102150405"), now.Nanosecond()/1000, safe)
}

// Thumbnail decodes content and encodes a JPEG bounded by ThumbnailMaxSize.
// Images already within bounds are re-encoded at their own size.
func Thumbnail(content []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), ThumbnailMaxSize)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 82}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}
