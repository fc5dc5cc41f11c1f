package frontmatter

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/ansuz/internal/apperr"
)

var (
	// slugStripRe removes everything outside letters, digits, underscore,
	// CJK, whitespace, and hyphen.
	slugStripRe = regexp.MustCompile(`[^A-Za-z0-9_\p{Han}\s-]`)
	spaceRunRe  = regexp.MustCompile(`\s+`)
)

// Slug derives the filesystem-safe hyphenated form of a title: disallowed
// characters stripped, whitespace runs collapsed to single hyphens, outer
// hyphens trimmed. Returns apperr.ErrInvalidTitle when nothing survives.
func Slug(title string) (string, error) {
	s := slugStripRe.ReplaceAllString(title, "")
	s = spaceRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "", apperr.ErrInvalidTitle
	}
	return s, nil
}

// Filename derives the canonical post filename, YYYY-MM-DD-<slug>.md.
func Filename(date time.Time, title string) (string, error) {
	slug, err := Slug(title)
	if err != nil {
		return "", err
	}
	return date.Format("2006-01-02") + "-" + slug + ".md", nil
}

// SplitTags tokenizes a space-separated tag entry, dropping empty tokens and
// later duplicates while preserving entry order.
func SplitTags(entry string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(entry) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// JoinTags renders tags as a comma-joined list.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
