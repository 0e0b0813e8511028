// Package textutil repairs header text that is not valid UTF-8.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// minDetectBytes is the shortest input handed to charset detection. Most
// display names are shorter and detection on them is noise, so they go
// straight to the Windows-1252 fallback, the usual charset of raw 8-bit
// headers.
const minDetectBytes = 64

// EnsureUTF8 returns s unchanged if it is valid UTF-8. Otherwise it tries to
// detect the charset and decode, and falls back to replacing invalid bytes.
func EnsureUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	data := []byte(s)

	if len(data) >= minDetectBytes {
		detector := chardet.NewTextDetector()
		if result, err := detector.DetectBest(data); err == nil && result.Confidence >= 50 {
			if decoded, ok := Decode(result.Charset, data); ok {
				return decoded
			}
		}
	}

	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
		return string(decoded)
	}

	return SanitizeUTF8(s)
}

// Decode converts data from the named charset (any IANA or WHATWG label) to
// UTF-8. It reports false if the charset is unknown or decoding fails.
func Decode(charset string, data []byte) (string, bool) {
	enc, err := htmlindex.Get(strings.ToLower(strings.TrimSpace(charset)))
	if err != nil || enc == nil {
		return "", false
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}

// SanitizeUTF8 replaces each invalid UTF-8 byte with U+FFFD.
func SanitizeUTF8(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune('�')
			i++
		} else {
			sb.WriteRune(r)
			i += size
		}
	}
	return sb.String()
}
