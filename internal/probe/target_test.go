package probe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTarget(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://example.com", "https://example.com"},
		{"  HTTP://Example.COM:80/a/b#top ", "http://example.com/a/b"},
		{"https://example.com:443/", "https://example.com/"},
		{"https://example.com:8443/x?q=1", "https://example.com:8443/x?q=1"},
		{"http://[::1]:80/", "http://[::1]/"},
	}
	for _, tc := range cases {
		got, err := NormalizeTarget(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got)
	}
}

func TestNormalizeTarget_Rejects(t *testing.T) {
	for _, in := range []string{"", "example.com", "ftp://example.com", "https://", "mailto:a@b.c"} {
		_, err := NormalizeTarget(in)
		require.ErrorIs(t, err, ErrInvalidTarget, in)
	}
}
