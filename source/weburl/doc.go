// Package weburl fetches threat reports published as web pages.
//
// # URL Validation
//
// ValidateURL rejects URLs that could reach internal services:
//
//   - non-HTTPS schemes
//   - localhost variants (localhost, 127.0.0.1, ::1)
//   - local domains (.local, .internal)
//   - private and reserved IP literals (RFC 1918, CGNAT, link-local, IPv6 ULA)
//
// # Fetching
//
// Fetcher resolves host names itself and refuses to dial private addresses,
// which also covers DNS rebinding and redirects to internal hosts. Response
// bodies are capped at a configured size.
//
//	f := weburl.NewFetcher(weburl.FetcherConfig{Timeout: 30 * time.Second})
//	page, err := f.Fetch(ctx, "https://example.com/blog/apt41")
//
// # File Names
//
// FileName maps a URL to a deterministic artifact name:
//
//	https://example.com/blog/apt41 → example-com-blog-apt41.html
package weburl
