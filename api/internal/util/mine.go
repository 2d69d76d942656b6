package util

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"
	"strings"
)

var (
	ErrNotDataURI   = errors.New("image must be a data URI of the form data:<mime>;base64,<payload>")
	ErrEmptyPayload = errors.New("data URI payload is empty")
)

// data:<type>/<subtype>;base64,<payload>
var reDataURI = regexp.MustCompile(`^data:([A-Za-z0-9][A-Za-z0-9!#$&^_.+-]*/[A-Za-z0-9][A-Za-z0-9!#$&^_.+-]*);base64,(.*)$`)

// DataURI: декодированное изображение вместе с его MIME.
type DataURI struct {
	MIME string
	Data []byte
}

// String собирает data URI обратно.
func (d DataURI) String() string {
	return MakeDataURL(d.MIME, base64.StdEncoding.EncodeToString(d.Data))
}

// ParseDataURI строго разбирает RFC 2397 data URI в base64-варианте.
// Голый base64 без префикса не принимается.
func ParseDataURI(s string) (DataURI, error) {
	m := reDataURI.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return DataURI{}, ErrNotDataURI
	}
	if m[2] == "" {
		return DataURI{}, ErrEmptyPayload
	}
	b, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return DataURI{}, err
	}
	if len(b) == 0 {
		return DataURI{}, ErrEmptyPayload
	}
	return DataURI{MIME: strings.ToLower(m[1]), Data: b}, nil
}

func SniffMimeHTTP(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "image/png"
	}
	return "application/octet-stream"
}

func MakeDataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}

// EncodeDataURI кодирует байты файла в data URI, MIME выбирается как в PickMIME.
func EncodeDataURI(explicit, hint string, data []byte) string {
	return DataURI{MIME: PickMIME(explicit, hint, data), Data: data}.String()
}

// PickMIME берём явный MIME, затем подсказку, иначе детектим по байтам.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if m := SniffMimeHTTP(data); m != "application/octet-stream" {
		return m
	}
	if len(data) > 0 {
		// http.DetectContentType может вернуть параметры ("; charset=utf-8")
		m := http.DetectContentType(data)
		if i := strings.IndexByte(m, ';'); i >= 0 {
			m = m[:i]
		}
		return m
	}
	return "image/jpeg"
}

// HashBytes: sha256 в hex, ключ для истории распознаваний.
func HashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
