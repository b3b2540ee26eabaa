package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchKey_URLMode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "query string is dropped",
			raw:      "https://example.com/post/ABC123?utm_source=share&igshid=xyz",
			expected: "httpsexamplecompostabc123",
		},
		{
			name:     "lowercased",
			raw:      "HTTPS://Example.COM/Post/ABC",
			expected: "httpsexamplecompostabc",
		},
		{
			name:     "no query string",
			raw:      "https://example.com/p/x",
			expected: "httpsexamplecompx",
		},
		{
			name:     "trailing slash collapses with path",
			raw:      "https://example.com/p/x/",
			expected: "httpsexamplecompx",
		},
		{
			name:     "empty input",
			raw:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchKey(tt.raw, true))
		})
	}
}

func TestMatchKey_TextMode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "embedded url mid-text is removed",
			raw:      "check this out https://t.co/abc123 now",
			expected: "checkthisoutnow",
		},
		{
			name:     "url at end of text is removed",
			raw:      "new drop https://example.com/p/x",
			expected: "newdrop",
		},
		{
			name:     "punctuation removed",
			raw:      "Big news!!! #launch @brand",
			expected: "bignewslaunchbrand",
		},
		{
			name:     "accents transliterate to ascii",
			raw:      "café résumé",
			expected: "caferesume",
		},
		{
			name:     "emoji stripped",
			raw:      "launch day \U0001F600\U0001F680",
			expected: "launchday",
		},
		{
			name:     "flags stripped",
			raw:      "go team \U0001F1FA\U0001F1F8",
			expected: "goteam",
		},
		{
			name:     "whitespace removed",
			raw:      "  spaced   out\ttext ",
			expected: "spacedouttext",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchKey(tt.raw, false))
		})
	}
}

func TestMatchKey_Idempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/post/ABC?x=1",
		"Big news!!! https://t.co/abc \U0001F600",
		"café résumé",
		"",
	}

	for _, raw := range inputs {
		for _, isURL := range []bool{true, false} {
			once := MatchKey(raw, isURL)
			twice := MatchKey(once, isURL)
			assert.Equal(t, once, twice, "MatchKey(%q, %v) should be idempotent", raw, isURL)
		}
	}
}

func TestMatchKey_Deterministic(t *testing.T) {
	raw := "Some Caption \U0001F680 https://t.co/x with Accents é"
	first := MatchKey(raw, false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, MatchKey(raw, false))
	}
}

func TestMatchKeyValue(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.Nil(t, MatchKeyValue(nil, true))
	})

	t.Run("string value", func(t *testing.T) {
		assert.Equal(t, "httpsexamplecomp", MatchKeyValue("https://example.com/p?x=1", true))
	})

	t.Run("numeric value stringified first", func(t *testing.T) {
		assert.Equal(t, "12345", MatchKeyValue(12345, false))
	})
}
