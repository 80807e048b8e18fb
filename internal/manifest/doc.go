// Package manifest turns crawled page listings into llms.txt text.
//
// GroupPages buckets pages by the first segment of their URL path, keeping
// first-seen group order and crawl discovery order within each group. Format
// renders the grouped structure deterministically: the same input always
// yields byte-identical output, which the result cache relies on.
package manifest
