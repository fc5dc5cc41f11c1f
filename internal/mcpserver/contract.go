package mcpserver

// PostFormatContract describes the canonical Jekyll Chirpy post format that
// LLM consumers should follow when generating or updating posts.
const PostFormatContract = `# Ansuz Post Format Contract

Every Markdown post managed by Ansuz MUST follow this structure.

## Structure

` + "```" + `markdown
---
layout: post                        # FIXED – always "post"
title: Human-readable title         # REQUIRED – drives the filename slug
date: 2024-3-2 09:00:00 +0800       # REQUIRED – month/day without zero padding
categories: [Main, Sub]             # OPTIONAL – ordered [main, sub] pair
tags: [tag-one, tag-two]            # OPTIONAL – lowercase preferred
author: author_id                   # OPTIONAL – id from _data/authors.yml
description: Short summary.         # OPTIONAL – may span multiple lines
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **Front matter keys appear in the fixed order above.** Empty optional
   fields are omitted entirely, never left blank.
2. **The filename is derived, not chosen.** ` + "`" + `YYYY-MM-DD-<slug>.md` + "`" + ` under
   ` + "`" + `_posts/` + "`" + `: the date part is zero-padded, the slug keeps the title's case,
   replaces whitespace runs with single hyphens, and drops characters other
   than letters, digits, underscores, hyphens, and CJK.
3. **Categories** are an ordered pair: main category first, sub category
   second. Either may be omitted.
4. **Tags** are entered as one space-separated line; they are stored as a
   flow list.
5. **A multi-line description** uses the YAML literal block form
   (` + "`" + `description: |-` + "`" + `).
6. **Encoding** is UTF-8. The body below the closing ` + "`" + `---` + "`" + ` belongs to the
   author and is never rewritten by front matter edits.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + `
  field ready to paste into the post body.
- Assets are stored in the shared ` + "`" + `assets/img/` + "`" + ` directory (flat, no
  sub-folders).
- Reference in posts using the absolute path:
  ` + "`" + `![description](/assets/img/filename.png)` + "`" + `
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + "```" + `markdown
---
layout: post
title: Profiling Go Services
date: 2024-3-2 09:00:00 +0800
categories: [Development, Go]
tags: [go, pprof, performance]
author: alice
description: Where the CPU time actually goes.
---

# Profiling Go Services

![Flame graph](/assets/img/flamegraph.png)

Start with ` + "`" + `go tool pprof` + "`" + `...
` + "```" + `
`
