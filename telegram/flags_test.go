package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagStoreKeyNormalization(t *testing.T) {
	cases := []struct {
		prefix string
		want   string
	}{
		{"boitata:", "boitata:flags:bot_active"},
		{"boitata", "boitata:flags:bot_active"},
		{"", "flags:bot_active"},
	}

	for _, tc := range cases {
		s := NewFlagStore(nil, tc.prefix)
		assert.Equal(t, tc.want, s.key(flagBotActive), "prefix %q", tc.prefix)
	}
}
