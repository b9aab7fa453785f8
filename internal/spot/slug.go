package spot

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that do not decompose under NFKD.
var foldReplacer = strings.NewReplacer("ø", "o", "Ø", "o", "æ", "ae", "Æ", "ae", "ß", "ss")

// Slugify lowercases s, strips diacritics and collapses every run of
// characters outside [a-z0-9] into a single dash.
func Slugify(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), foldReplacer.Replace(s))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// Slug returns the canonical URL slug of a spot: name and address followed
// by the ID, e.g. "sentrum-p-hus-tollbugata-1-1234".
func Slug(s *Spot) string {
	var parts []string
	for _, p := range []string{Slugify(s.Name), Slugify(s.Address)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	id := strconv.FormatInt(s.ID, 10)
	if len(parts) == 0 {
		return "parkering-" + id + "-" + id
	}
	return strings.Join(parts, "-") + "-" + id
}

// IDFromSlug extracts the trailing numeric ID of a slug. A bare number is
// accepted as well.
func IDFromSlug(slug string) (int64, bool) {
	tail := slug
	if i := strings.LastIndexByte(slug, '-'); i >= 0 {
		tail = slug[i+1:]
	}
	if tail == "" {
		return 0, false
	}
	for _, r := range tail {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
