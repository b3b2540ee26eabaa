// Package shortcode reconciles short post identifiers (e.g. Instagram
// shortcodes) with the full permalinks other exports carry.
package shortcode

import "strings"

// MapToURLs pairs each URL with the shortcode it contains. Empty
// shortcodes are skipped. When several shortcodes appear in one URL the
// last one in list order wins, so callers should pass deduplicated input.
func MapToURLs(shortcodes, urls []string) map[string]string {
	urlToShortcode := make(map[string]string)
	for _, code := range shortcodes {
		if code == "" {
			continue
		}
		for _, url := range urls {
			if strings.Contains(url, code) {
				urlToShortcode[url] = code
			}
		}
	}
	return urlToShortcode
}
