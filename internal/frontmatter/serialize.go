package frontmatter

import "strings"

// Serialize emits the front matter block in the fixed template order:
// layout, title, date, categories, tags, author, description. Optional
// fields are omitted when empty. The result ends with the closing
// delimiter line.
func Serialize(f Fields) []byte {
	var b strings.Builder
	b.WriteString(Delimiter + "\n")
	b.WriteString("layout: " + Layout + "\n")
	b.WriteString("title: " + f.Title + "\n")
	b.WriteString("date: " + f.Date.Format(DateLayout) + "\n")
	if cats := f.Categories(); len(cats) > 0 {
		b.WriteString("categories: [" + strings.Join(cats, ", ") + "]\n")
	}
	if len(f.Tags) > 0 {
		b.WriteString("tags: [" + strings.Join(f.Tags, ", ") + "]\n")
	}
	if f.Author != "" {
		b.WriteString("author: " + f.Author + "\n")
	}
	if f.Description != "" {
		if strings.Contains(f.Description, "\n") {
			b.WriteString("description: |-\n")
			for _, line := range strings.Split(f.Description, "\n") {
				b.WriteString("  " + line + "\n")
			}
		} else {
			b.WriteString("description: " + f.Description + "\n")
		}
	}
	b.WriteString(Delimiter + "\n")
	return []byte(b.String())
}

// Compose joins a serialized front matter block and a body with exactly one
// blank line between them. The body bytes are written through unchanged.
func Compose(f Fields, body string) []byte {
	block := Serialize(f)
	out := make([]byte, 0, len(block)+1+len(body))
	out = append(out, block...)
	out = append(out, '\n')
	out = append(out, body...)
	return out
}
