package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySourceKind(t *testing.T) {
	tests := []struct {
		name     string
		columns  []string
		expected SourceKind
	}{
		{
			name:     "spend column means paid",
			columns:  []string{"url", "spend", "clicks"},
			expected: SourceKindPaid,
		},
		{
			name:     "spend_usd column means paid",
			columns:  []string{"url", "spend_usd"},
			expected: SourceKindPaid,
		},
		{
			name:     "case insensitive",
			columns:  []string{"url", "Spend_USD"},
			expected: SourceKindPaid,
		},
		{
			name:     "no spend column means organic",
			columns:  []string{"url", "impressions", "likes"},
			expected: SourceKindOrganic,
		},
		{
			name:     "spend substring does not count",
			columns:  []string{"url", "spend_total", "ad_spend"},
			expected: SourceKindOrganic,
		},
		{
			name:     "empty columns",
			columns:  nil,
			expected: SourceKindOrganic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifySourceKind(tt.columns))
		})
	}
}
