package manifest

import (
	"net/url"
	"strings"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

// RootPrefix is the prefix of the group holding root-level pages.
const RootPrefix = ""

// Group is a bucket of pages sharing the first URL path segment.
type Group struct {
	Prefix string
	Pages  []llmstxt.Page
}

// Stats accounts for every input page: each one is either grouped or
// counted under exactly one drop reason.
type Stats struct {
	Input            int `json:"input"`
	Grouped          int `json:"grouped"`
	LanguageFiltered int `json:"language_filtered"`
	Duplicates       int `json:"duplicates"`
	Invalid          int `json:"invalid"`
}

// Grouped is the output of GroupPages.
type Grouped struct {
	Groups []Group
	Stats  Stats
}

// PageCount returns the number of pages across all groups.
func (g Grouped) PageCount() int {
	n := 0
	for _, grp := range g.Groups {
		n += len(grp.Pages)
	}
	return n
}

// LanguageFilter is an allow-list of language tags. An empty filter passes
// every page through.
type LanguageFilter []string

// Allows reports whether a page tagged with tag survives the filter. Pages
// without a tag always pass. Matching is case-insensitive, and a filter
// entry without a region ("en") also admits regional tags ("en-US").
func (f LanguageFilter) Allows(tag string) bool {
	tag = strings.TrimSpace(tag)
	if len(f) == 0 || tag == "" {
		return true
	}
	tag = strings.ToLower(strings.ReplaceAll(tag, "_", "-"))
	primary, _, _ := strings.Cut(tag, "-")
	for _, allowed := range f {
		allowed = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(allowed), "_", "-"))
		if allowed == tag {
			return true
		}
		if !strings.Contains(allowed, "-") && allowed == primary {
			return true
		}
	}
	return false
}

// GroupPages buckets pages by path prefix. Pages with an empty or
// unparseable URL, a language outside filter, or an exact URL already seen
// are dropped and counted in Stats.
func GroupPages(pages []llmstxt.Page, filter LanguageFilter) Grouped {
	var out Grouped
	index := make(map[string]int)
	seen := make(map[string]struct{}, len(pages))

	for _, page := range pages {
		out.Stats.Input++
		prefix, ok := pathPrefix(page.URL)
		if !ok {
			out.Stats.Invalid++
			continue
		}
		if !filter.Allows(page.Language) {
			out.Stats.LanguageFiltered++
			continue
		}
		if _, dup := seen[page.URL]; dup {
			out.Stats.Duplicates++
			continue
		}
		seen[page.URL] = struct{}{}

		i, exists := index[prefix]
		if !exists {
			i = len(out.Groups)
			index[prefix] = i
			out.Groups = append(out.Groups, Group{Prefix: prefix})
		}
		out.Groups[i].Pages = append(out.Groups[i].Pages, page)
		out.Stats.Grouped++
	}
	return out
}

func pathPrefix(rawURL string) (string, bool) {
	if strings.TrimSpace(rawURL) == "" {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	for _, segment := range strings.Split(u.Path, "/") {
		if segment != "" {
			return segment, true
		}
	}
	return RootPrefix, true
}
