package shortcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapToURLs(t *testing.T) {
	tests := []struct {
		name       string
		shortcodes []string
		urls       []string
		expected   map[string]string
	}{
		{
			name:       "shortcode found in url",
			shortcodes: []string{"Cabc123"},
			urls:       []string{"https://www.instagram.com/p/Cabc123/"},
			expected:   map[string]string{"https://www.instagram.com/p/Cabc123/": "Cabc123"},
		},
		{
			name:       "multiple codes map to their urls",
			shortcodes: []string{"AAA", "BBB"},
			urls: []string{
				"https://instagram.com/p/AAA/",
				"https://instagram.com/p/BBB/",
				"https://instagram.com/p/CCC/",
			},
			expected: map[string]string{
				"https://instagram.com/p/AAA/": "AAA",
				"https://instagram.com/p/BBB/": "BBB",
			},
		},
		{
			name:       "empty shortcode skipped",
			shortcodes: []string{""},
			urls:       []string{"https://instagram.com/p/AAA/"},
			expected:   map[string]string{},
		},
		{
			name:       "no matches",
			shortcodes: []string{"ZZZ"},
			urls:       []string{"https://instagram.com/p/AAA/"},
			expected:   map[string]string{},
		},
		{
			name:       "later code wins on overlap",
			shortcodes: []string{"AB", "ABC"},
			urls:       []string{"https://instagram.com/p/ABC/"},
			expected:   map[string]string{"https://instagram.com/p/ABC/": "ABC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapToURLs(tt.shortcodes, tt.urls))
		})
	}
}
