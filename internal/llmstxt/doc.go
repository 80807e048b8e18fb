// Package llmstxt defines the core types shared across the manifest service:
// crawl requests, job records, cache entries, the provider poll variant, and
// the interfaces implemented by stores, caches, and crawl providers.
package llmstxt
