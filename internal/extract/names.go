package extract

import (
	"regexp"
	"strings"
	"unicode"

	"templatefill-backend/internal/shared/util"
)

var validName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidName reports whether name is a usable field identifier.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// NormalizeName lower-cases name and collapses every run of characters
// outside [a-z0-9] into a single underscore. Names starting with a digit get
// a "field_" prefix. Returns "" when nothing usable remains.
func NormalizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	out := b.String()
	if out == "" {
		return ""
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "field_" + out
	}
	return out
}

// Label renders a field name for display: contract_amount -> Contract Amount.
func Label(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || unicode.IsSpace(r) })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Fingerprint identifies document bytes for caching.
func Fingerprint(data []byte) string {
	return util.HashBytes(data)
}

// nameSet keeps normalized names unique in first-seen order.
type nameSet struct {
	seen  map[string]struct{}
	order []string
}

func newNameSet() *nameSet {
	return &nameSet{seen: make(map[string]struct{})}
}

func (s *nameSet) add(raw string) {
	name := NormalizeName(raw)
	if name == "" {
		return
	}
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.order = append(s.order, name)
}

func (s *nameSet) list() []string {
	if s.order == nil {
		return []string{}
	}
	return s.order
}
