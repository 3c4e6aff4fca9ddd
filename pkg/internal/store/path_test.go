package store_test

import (
	"errors"
	"testing"

	"github.com/yeisme/gradevault/pkg/internal/store"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path string
		ok   bool
	}{
		{"files/grade7/01HZY", true},
		{"fileChunks/01HZY/0", true},
		{"admins/teacher@school_org", true},
		{"", false},
		{"files//x", false},
		{"/files", false},
		{"files/", false},
		{"files/a.b", false},
		{"files/a#b", false},
		{"files/a$b", false},
		{"files/a[0]", false},
		{"files/*", false},
	}

	for _, tt := range tests {
		err := store.ValidatePath(tt.path)
		if tt.ok && err != nil {
			t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
		}

		if !tt.ok && !errors.Is(err, store.ErrInvalidPath) {
			t.Errorf("ValidatePath(%q) = %v, want ErrInvalidPath", tt.path, err)
		}
	}
}

func TestSanitizeSegment(t *testing.T) {
	got := store.SanitizeSegment("jane.doe#1$[x]@mail.com")
	want := "jane_doe_1__x_@mail_com"

	if got != want {
		t.Fatalf("SanitizeSegment = %q, want %q", got, want)
	}

	if err := store.ValidateSegment(got); err != nil {
		t.Fatalf("sanitized segment invalid: %v", err)
	}
}

func TestParentBase(t *testing.T) {
	if p := store.Parent("fileChunks/abc/3"); p != "fileChunks/abc" {
		t.Fatalf("Parent = %q", p)
	}

	if b := store.Base("fileChunks/abc/3"); b != "3" {
		t.Fatalf("Base = %q", b)
	}

	if p := store.Parent("admins"); p != "" {
		t.Fatalf("Parent of top level = %q", p)
	}
}

func TestNewID_Ordered(t *testing.T) {
	prev := store.NewID()
	for range 100 {
		next := store.NewID()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}

		prev = next
	}
}
