package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/gradevault/pkg/configs"
	"github.com/yeisme/gradevault/pkg/internal/store"
	"github.com/yeisme/gradevault/pkg/rule"
)

// AdminsRoot 管理员记录根路径.
const AdminsRoot = "admins"

// AdminRecord 存放在 admins/{key} 的记录.
type AdminRecord struct {
	Email   string `json:"email"`
	AddedAt int64  `json:"addedAt"`
}

// AdminService 判定与维护管理员.
type AdminService struct {
	store    store.Store
	fallback []string
}

// NewAdminService 创建管理员服务，auth.admin_emails 作为兜底列表.
func NewAdminService(st store.Store, auth configs.AuthConfig) *AdminService {
	fallback := make([]string, 0, len(auth.AdminEmails))
	for _, e := range auth.AdminEmails {
		fallback = append(fallback, normalizeEmail(e))
	}

	return &AdminService{store: st, fallback: fallback}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AdminKey 把邮箱转成路径段，. # $ [ ] 替换为 _.
func AdminKey(email string) string {
	return store.SanitizeSegment(normalizeEmail(email))
}

// IsAdmin 判断邮箱是否为管理员.
func (s *AdminService) IsAdmin(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, nil
	}

	if slices.Contains(s.fallback, email) {
		return true, nil
	}

	_, err := s.store.Get(ctx, store.Join(AdminsRoot, AdminKey(email)))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// AddAdmin 写入管理员记录，重复添加会覆盖.
func (s *AdminService) AddAdmin(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := rule.ValidateVar(email, "required,email"); err != nil {
		return err
	}

	b, err := sonic.Marshal(AdminRecord{Email: email, AddedAt: time.Now().UnixMilli()})
	if err != nil {
		return err
	}

	return s.store.Set(ctx, store.Join(AdminsRoot, AdminKey(email)), b)
}

// RemoveAdmin 删除管理员记录，不影响兜底列表.
func (s *AdminService) RemoveAdmin(ctx context.Context, email string) error {
	return s.store.Remove(ctx, store.Join(AdminsRoot, AdminKey(email)))
}

// ListAdmins 列出存储中的管理员.
func (s *AdminService) ListAdmins(ctx context.Context) ([]AdminRecord, error) {
	nodes, err := s.store.Children(ctx, AdminsRoot)
	if err != nil {
		return nil, err
	}

	admins := make([]AdminRecord, 0, len(nodes))

	for _, n := range nodes {
		var rec AdminRecord
		if err := sonic.Unmarshal(n.Value, &rec); err != nil {
			// 只有 key 的旧记录
			rec.Email = n.Key
		}

		admins = append(admins, rec)
	}

	return admins, nil
}
