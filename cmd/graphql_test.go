package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariables(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{name: "None", pairs: nil, want: nil},
		{name: "String", pairs: []string{"owner=acme"}, want: map[string]any{"owner": "acme"}},
		{name: "Number", pairs: []string{"first=50"}, want: map[string]any{"first": float64(50)}},
		{name: "Bool And Quoted", pairs: []string{"draft=false", `name="42"`}, want: map[string]any{"draft": false, "name": "42"}},
		{name: "Value With Equals", pairs: []string{"q=a=b"}, want: map[string]any{"q": "a=b"}},
		{name: "Missing Separator", pairs: []string{"owner"}, wantErr: true},
		{name: "Empty Key", pairs: []string{"=x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVariables(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "averyl...", truncate("averylongaccountname", 9))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
