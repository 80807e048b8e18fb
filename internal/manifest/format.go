package manifest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

const rootHeading = "Homepage"

// Format renders grouped pages as llms.txt text:
//
//	## Heading
//	- [Title](url): description
//
// Groups are separated by a blank line and empty groups are omitted. When two
// prefixes derive the same heading ("Blog" and "blog"), later ones carry the
// raw segment, as in "## Blog (/blog)". The output ends with a newline unless
// no group has pages, in which case it is empty.
func Format(g Grouped) string {
	var b strings.Builder
	used := make(map[string]struct{}, len(g.Groups))
	first := true
	for _, grp := range g.Groups {
		if len(grp.Pages) == 0 {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false
		heading := Heading(grp.Prefix)
		if _, dup := used[heading]; dup {
			heading += " (/" + grp.Prefix + ")"
		}
		used[heading] = struct{}{}
		b.WriteString("## ")
		b.WriteString(heading)
		b.WriteByte('\n')
		for _, page := range grp.Pages {
			writeEntry(&b, page)
		}
	}
	return b.String()
}

// Heading derives a group heading from its path prefix: "getting-started"
// becomes "Getting Started" and the root group becomes "Homepage".
func Heading(prefix string) string {
	if prefix == RootPrefix {
		return rootHeading
	}
	words := strings.FieldsFunc(prefix, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return prefix
	}
	for i, word := range words {
		words[i] = titleWord(word)
	}
	return strings.Join(words, " ")
}

func titleWord(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}

func writeEntry(b *strings.Builder, page llmstxt.Page) {
	label := collapse(page.Title)
	if label == "" {
		label = page.URL
	}
	b.WriteString("- [")
	b.WriteString(label)
	b.WriteString("](")
	b.WriteString(page.URL)
	b.WriteByte(')')
	if desc := collapse(page.Description); desc != "" {
		b.WriteString(": ")
		b.WriteString(desc)
	}
	b.WriteByte('\n')
}

// collapse folds runs of whitespace, including newlines, into single spaces
// so one page always renders as one line.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Count reports how many group headings and page entries text contains. It
// is used for manifests read back from the cache, whose Grouped form is gone.
func Count(text string) (groups, pages int) {
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			groups++
		case strings.HasPrefix(line, "- ["):
			pages++
		}
	}
	return groups, pages
}
