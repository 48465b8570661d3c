package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/api/v1/entries/", "/api/v1/entries/"},
		{"/api/v1/entries/01HXYZ", "/api/v1/entries/:id"},
		{"/api/v1/entries/01HXYZ/post", "/api/v1/entries/:id/post"},
		{"/api/v1/entries/01HXYZ/reverse", "/api/v1/entries/:id/reverse"},
		{"/api/v1/reconciliations", "/api/v1/reconciliations"},
	}

	for _, tc := range cases {
		if got := normalizePath(tc.path); got != tc.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
