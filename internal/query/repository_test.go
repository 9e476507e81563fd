package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampHistoryLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero falls back to default", limit: 0, want: 10},
		{name: "negative falls back to default", limit: -5, want: 10},
		{name: "in range passes through", limit: 25, want: 25},
		{name: "at cap passes through", limit: 100, want: 100},
		{name: "over cap is capped, not shrunk", limit: 500, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clampHistoryLimit(tt.limit))
		})
	}
}
