package kv

import "testing"

func TestRedisGlob(t *testing.T) {
	cases := map[string]string{
		"":               "*",
		"*":              "*",
		"files/grade7/*": "files/grade7/*",
		"files:grade7":   "files:grade7",
		"a[1]?*":         `a\[1\]\?*`,
	}

	for in, want := range cases {
		if got := redisGlob(in); got != want {
			t.Errorf("redisGlob(%q) = %q, want %q", in, got, want)
		}
	}
}
