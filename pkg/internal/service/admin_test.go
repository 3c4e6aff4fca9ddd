package service_test

import (
	"context"
	"testing"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/service"
	"github.com/yeisme/gradevault/pkg/internal/storage/kv"
	"github.com/yeisme/gradevault/pkg/internal/store"
)

func newAdminService(t *testing.T, fallback ...string) (*service.AdminService, store.Store) {
	t.Helper()

	mem, err := kv.NewMemoryKV(context.Background(), nil)
	if err != nil {
		t.Fatalf("memory kv: %v", err)
	}

	st := store.NewKVStore(mem, "")

	return service.NewAdminService(st, configs.AuthConfig{AdminEmails: fallback}), st
}

func TestAdminKey(t *testing.T) {
	tests := map[string]string{
		"teacher@school.edu":   "teacher@school_edu",
		"  Jane.Doe@Mail.COM ": "jane_doe@mail_com",
		"a#b$c[d]@x.org":       "a_b_c_d_@x_org",
	}

	for in, want := range tests {
		if got := service.AdminKey(in); got != want {
			t.Errorf("AdminKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAdminService_AddCheckRemove(t *testing.T) {
	svc, st := newAdminService(t)
	ctx := context.Background()

	if ok, err := svc.IsAdmin(ctx, "head@school.edu"); err != nil || ok {
		t.Fatalf("IsAdmin before add = %v, %v", ok, err)
	}

	if err := svc.AddAdmin(ctx, "Head@School.edu"); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}

	if _, err := st.Get(ctx, "admins/head@school_edu"); err != nil {
		t.Fatalf("admin record not stored under sanitized key: %v", err)
	}

	if ok, err := svc.IsAdmin(ctx, "head@school.edu"); err != nil || !ok {
		t.Fatalf("IsAdmin after add = %v, %v", ok, err)
	}

	admins, err := svc.ListAdmins(ctx)
	if err != nil {
		t.Fatalf("ListAdmins: %v", err)
	}

	if len(admins) != 1 || admins[0].Email != "head@school.edu" {
		t.Errorf("ListAdmins = %+v", admins)
	}

	if err := svc.RemoveAdmin(ctx, "head@school.edu"); err != nil {
		t.Fatalf("RemoveAdmin: %v", err)
	}

	if ok, _ := svc.IsAdmin(ctx, "head@school.edu"); ok {
		t.Error("still admin after remove")
	}
}

func TestAdminService_FallbackAndValidation(t *testing.T) {
	svc, _ := newAdminService(t, "Root@School.edu")
	ctx := context.Background()

	if ok, err := svc.IsAdmin(ctx, " root@school.edu"); err != nil || !ok {
		t.Errorf("fallback admin not recognised: %v, %v", ok, err)
	}

	if ok, _ := svc.IsAdmin(ctx, ""); ok {
		t.Error("empty email must not be admin")
	}

	if err := svc.AddAdmin(ctx, "not-an-email"); err == nil {
		t.Error("AddAdmin accepted an invalid email")
	}
}
