package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Chicken Curry", "chicken curry"},
		{"collapses whitespace", "  CHICKEN \t CURRY  ", "chicken curry"},
		{"keeps digits", "70G", "70g"},
		{"keeps punctuation", "Coca-Cola", "coca-cola"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NameKey(tt.in))
		})
	}
}

func TestNameKey_MatchesAcrossCasings(t *testing.T) {
	require.Equal(t, NameKey("Golden Penny"), NameKey("GOLDEN  PENNY"))
	require.NotEqual(t, NameKey("Golden Penny"), NameKey("Golden-Penny"))
}
