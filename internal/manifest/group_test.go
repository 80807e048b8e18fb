package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

func TestGroupPagesBlogScenario(t *testing.T) {
	t.Parallel()

	pages := []llmstxt.Page{
		{URL: "https://example.com/", Title: "Home"},
		{URL: "https://example.com/blog/a", Title: "A"},
		{URL: "https://example.com/blog/b", Title: "B"},
	}
	got := GroupPages(pages, nil)

	require.Len(t, got.Groups, 2)
	require.Equal(t, RootPrefix, got.Groups[0].Prefix)
	require.Len(t, got.Groups[0].Pages, 1)
	require.Equal(t, "blog", got.Groups[1].Prefix)
	require.Equal(t, []string{"A", "B"}, titles(got.Groups[1].Pages))
	require.Equal(t, 3, got.PageCount())
}

func TestGroupPagesKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	pages := []llmstxt.Page{
		{URL: "https://example.com/docs/z", Title: "z"},
		{URL: "https://example.com/about", Title: "about"},
		{URL: "https://example.com/docs/a", Title: "a"},
		{URL: "https://example.com/", Title: "root"},
		{URL: "https://example.com/about/team", Title: "team"},
	}
	got := GroupPages(pages, nil)

	prefixes := make([]string, 0, len(got.Groups))
	for _, g := range got.Groups {
		prefixes = append(prefixes, g.Prefix)
	}
	require.Equal(t, []string{"docs", "about", RootPrefix}, prefixes)
	require.Equal(t, []string{"z", "a"}, titles(got.Groups[0].Pages))
	require.Equal(t, []string{"about", "team"}, titles(got.Groups[1].Pages))
}

func TestGroupPagesDropsAreAccounted(t *testing.T) {
	t.Parallel()

	pages := []llmstxt.Page{
		{URL: "https://example.com/a", Language: "en"},
		{URL: "https://example.com/a", Language: "en"},
		{URL: "https://example.com/fr/a", Language: "fr"},
		{URL: "", Title: "no url"},
		{URL: "https://example.com/%zz"},
		{URL: "https://example.com/b"},
		{URL: "https://example.com/c", Language: "en-US"},
	}
	got := GroupPages(pages, LanguageFilter{"en"})

	require.Equal(t, Stats{
		Input:            7,
		Grouped:          3,
		LanguageFiltered: 1,
		Duplicates:       1,
		Invalid:          2,
	}, got.Stats)
	s := got.Stats
	require.Equal(t, s.Input, s.Grouped+s.LanguageFiltered+s.Duplicates+s.Invalid)
	require.Equal(t, s.Grouped, got.PageCount())
}

func TestGroupPagesExactURLDedupOnly(t *testing.T) {
	t.Parallel()

	pages := []llmstxt.Page{
		{URL: "https://example.com/a", Title: "first"},
		{URL: "https://example.com/a/", Title: "slash variant"},
		{URL: "https://example.com/a", Title: "second"},
	}
	got := GroupPages(pages, nil)

	require.Len(t, got.Groups, 1)
	require.Equal(t, []string{"first", "slash variant"}, titles(got.Groups[0].Pages))
	require.Equal(t, 1, got.Stats.Duplicates)
}

func TestLanguageFilterAllows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filter LanguageFilter
		tag    string
		want   bool
	}{
		{filter: nil, tag: "de", want: true},
		{filter: LanguageFilter{"en"}, tag: "", want: true},
		{filter: LanguageFilter{"en"}, tag: "EN", want: true},
		{filter: LanguageFilter{"en"}, tag: "en_GB", want: true},
		{filter: LanguageFilter{"en-US"}, tag: "en-GB", want: false},
		{filter: LanguageFilter{"en-US"}, tag: "en-us", want: true},
		{filter: LanguageFilter{"en", "de"}, tag: "fr", want: false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.filter.Allows(tt.tag), "filter=%v tag=%q", tt.filter, tt.tag)
	}
}

func titles(pages []llmstxt.Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Title)
	}
	return out
}
