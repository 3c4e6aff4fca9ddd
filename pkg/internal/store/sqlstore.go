package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/gradevault/pkg/internal/model"
)

// SQLStore 把每个叶子路径存为 nodes 表的一行.
type SQLStore struct {
	db *gorm.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore 创建 sql 后端，migrate 为 true 时自动建表.
func NewSQLStore(ctx context.Context, db *gorm.DB, migrate bool) (*SQLStore, error) {
	if migrate {
		if err := db.WithContext(ctx).AutoMigrate(&model.Node{}); err != nil {
			return nil, fmt.Errorf("migrate nodes: %w", err)
		}
	}

	return &SQLStore{db: db}, nil
}

// descendants 返回 path 所有后代的查询条件.
// 用区间代替 LIKE，'0' 是 '/' 之后的下一个字符.
func descendants(tx *gorm.DB, path string) *gorm.DB {
	return tx.Where("path >= ? AND path < ?", path+"/", path+"0")
}

// Get 实现 Store.
func (s *SQLStore) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	var n model.Node

	err := s.db.WithContext(ctx).Where("path = ?", path).Take(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return n.Value, nil
}

// Set 实现 Store.
func (s *SQLStore) Set(ctx context.Context, path string, value []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	if value == nil {
		value = []byte{}
	}

	n := model.Node{Path: path, Parent: Parent(path), Value: value}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&n).Error
}

// Push 实现 Store.
func (s *SQLStore) Push(ctx context.Context, parent string, value []byte) (string, error) {
	return push(ctx, s, parent, value)
}

// Remove 实现 Store.
func (s *SQLStore) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := descendants(tx, path).Delete(&model.Node{}).Error; err != nil {
			return err
		}

		return tx.Where("path = ?", path).Delete(&model.Node{}).Error
	})
}

// Children 实现 Store.
// 直接子叶子连同值一次查出，更深的后代只查路径.
func (s *SQLStore) Children(ctx context.Context, path string) ([]Node, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	children := childSet{}

	var leaves []model.Node
	if err := db.Where("parent = ?", path).Find(&leaves).Error; err != nil {
		return nil, err
	}

	for _, n := range leaves {
		children.add(Base(n.Path), n.Value)
	}

	var deeper []string
	if err := descendants(db.Model(&model.Node{}), path).
		Where("parent <> ?", path).
		Pluck("path", &deeper).Error; err != nil {
		return nil, err
	}

	base := path + "/"
	for _, p := range deeper {
		children.add(strings.TrimPrefix(p, base), nil)
	}

	return children.sorted(), nil
}

// Close 实现 Store，数据库连接由创建者关闭.
func (s *SQLStore) Close() error {
	return nil
}
