package util

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var dotRun = regexp.MustCompile(`\.{2,}`)

// SanitizeFileName reduces name to a single plain path element. Separators
// become underscores and dot runs collapse to one dot.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = dotRun.ReplaceAllString(s, ".")
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// DashSpaces replaces every whitespace run with a single dash and drops
// characters that are unsafe in a Content-Disposition file name. Dot runs
// collapse to one dot.
func DashSpaces(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsSpace(r):
			pendingDash = true
			continue
		case r == '/' || r == '\\' || r == '"' || unicode.IsControl(r):
			continue
		}
		if pendingDash && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingDash = false
		b.WriteRune(r)
	}
	return dotRun.ReplaceAllString(b.String(), ".")
}
