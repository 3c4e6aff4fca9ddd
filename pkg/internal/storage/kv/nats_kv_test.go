package kv

import "testing"

func TestNATSKeyEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"gv/files/grade7/01J9", "gv/files/grade7/01J9"},
		{"cache:files:grade7", "cache=3Afiles=3Agrade7"},
		{"gv/admins/a@b_com", "gv/admins/a=40b_com"},
		{"x=y", "x=3Dy"},
	}

	for _, tt := range tests {
		got := natsKey(tt.in)
		if got != tt.want {
			t.Errorf("natsKey(%q) = %q, want %q", tt.in, got, tt.want)
		}

		if back := plainKey(got); back != tt.in {
			t.Errorf("plainKey(%q) = %q, want %q", got, back, tt.in)
		}
	}
}
