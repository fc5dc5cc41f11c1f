// Package frontmatter implements the Chirpy-template front matter engine:
// a tolerant parser, a fixed-order serializer, filename derivation, and tag
// entry normalization. Parsing never fails; a file without a leading
// delimiter is treated as all body with empty front matter.
package frontmatter

import (
	"strings"
	"time"
)

// Delimiter is the front matter fence line.
const Delimiter = "---"

// Layout is the fixed layout value emitted for every post.
const Layout = "post"

// DateLayout is the serialized date format, e.g. "2024-1-15 08:30:00 +0800".
// Month and day are not zero-padded, matching the template this tool targets.
const DateLayout = "2006-1-2 15:04:05 -0700"

// dateLayouts are accepted on input, most specific first.
var dateLayouts = []string{
	DateLayout,
	"2006-1-2 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-1-2",
}

// Fields is the typed form of the Chirpy front matter template.
type Fields struct {
	Title        string    `json:"title"`
	Date         time.Time `json:"date"`
	MainCategory string    `json:"main_category,omitempty"`
	SubCategory  string    `json:"sub_category,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Author       string    `json:"author,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Categories returns the ordered non-empty (main, sub) pair.
func (f Fields) Categories() []string {
	var out []string
	if f.MainCategory != "" {
		out = append(out, f.MainCategory)
	}
	if f.SubCategory != "" {
		out = append(out, f.SubCategory)
	}
	return out
}

// Document is the transient parse result: typed fields plus the byte-exact
// body. Front matter edits never touch Body.
type Document struct {
	Fields         Fields
	Body           string
	HasFrontMatter bool
}

// Parse splits raw post content into front matter fields and body.
//
// The opening delimiter must be the first non-blank line. If no opening or
// closing delimiter is found the whole content is body. The block between
// the delimiters is scanned line by line; unparseable lines are ignored.
func Parse(data []byte) *Document {
	content := string(data)
	doc := &Document{Body: content}

	trimmed := strings.TrimLeft(content, "\n\r")
	nl := strings.IndexByte(trimmed, '\n')
	if nl < 0 || strings.TrimRight(trimmed[:nl], " \t\r") != Delimiter {
		return doc
	}
	rest := trimmed[nl+1:]

	block, body, found := splitAtClosingDelimiter(rest)
	if !found {
		return doc
	}

	// Drop the single blank separator line the serializer emits between the
	// closing delimiter and the body. Anything beyond it belongs to the body.
	if strings.HasPrefix(body, "\r\n") {
		body = body[2:]
	} else if strings.HasPrefix(body, "\n") {
		body = body[1:]
	}

	doc.Fields = scanFields(block)
	doc.Body = body
	doc.HasFrontMatter = true
	return doc
}

// splitAtClosingDelimiter finds the first line equal to the delimiter and
// returns the text before it and after its newline.
func splitAtClosingDelimiter(s string) (block, body string, found bool) {
	for off := 0; off <= len(s); {
		nl := strings.IndexByte(s[off:], '\n')
		var line string
		next := len(s)
		if nl >= 0 {
			line = s[off : off+nl]
			next = off + nl + 1
		} else {
			line = s[off:]
		}
		if strings.TrimRight(line, " \t\r") == Delimiter {
			if nl < 0 {
				return s[:off], "", true
			}
			return s[:off], s[next:], true
		}
		if nl < 0 {
			break
		}
		off = next
	}
	return "", "", false
}

// scanFields runs the tolerant key-value scanner over a front matter block.
// Supported grammar: "key: value", "key: [a, b]", "key:" with two-space
// indented "- item" lines, and "key: |-" literal blocks for descriptions.
func scanFields(block string) Fields {
	var f Fields
	lines := strings.Split(block, "\n")
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Indented line with no key above it; skip.
			continue
		}
		key, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		rest = strings.TrimSpace(rest)

		var scalar string
		var list []string
		switch {
		case rest == "":
			for i+1 < len(lines) {
				next := strings.TrimRight(lines[i+1], "\r")
				item := strings.TrimSpace(next)
				if !indented(next) || !strings.HasPrefix(item, "- ") {
					break
				}
				if v := unquote(strings.TrimSpace(item[2:])); v != "" {
					list = append(list, v)
				}
				i++
			}
		case rest == "|" || rest == "|-":
			var para []string
			for i+1 < len(lines) {
				next := strings.TrimRight(lines[i+1], "\r")
				if !strings.HasPrefix(next, "  ") {
					break
				}
				para = append(para, strings.TrimPrefix(next, "  "))
				i++
			}
			scalar = strings.Join(para, "\n")
		case strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]"):
			list = splitList(rest[1 : len(rest)-1])
		default:
			scalar = unquote(rest)
		}

		f.assign(key, scalar, list)
	}
	return f
}

func (f *Fields) assign(key, scalar string, list []string) {
	switch key {
	case "title":
		f.Title = scalar
	case "date":
		if t, ok := ParseDate(scalar); ok {
			f.Date = t
		}
	case "categories":
		if list == nil && scalar != "" {
			// Legacy scalar forms "a, b" and "[a, b]".
			list = splitList(strings.Trim(scalar, "[]"))
		}
		if len(list) > 0 {
			f.MainCategory = list[0]
		}
		if len(list) > 1 {
			f.SubCategory = list[1]
		}
	case "tags":
		if list == nil && scalar != "" {
			list = splitList(strings.Trim(scalar, "[]"))
		}
		f.Tags = dedupe(list)
	case "author":
		f.Author = scalar
	case "description":
		f.Description = scalar
	case "layout":
		// Fixed by the template; regenerated on serialization.
	}
}

// ParseDate parses a date in any of the accepted front matter layouts.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func indented(line string) bool {
	return strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")
}

func splitList(inner string) []string {
	var out []string
	for _, p := range strings.Split(inner, ",") {
		if v := unquote(strings.TrimSpace(p)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func dedupe(ss []string) []string {
	if len(ss) < 2 {
		return ss
	}
	seen := make(map[string]struct{}, len(ss))
	out := ss[:0]
	for _, s := range ss {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
