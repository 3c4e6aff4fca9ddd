package model

import "time"

// Node sql 后端的一行，一个路径对应一个值.
type Node struct {
	Path      string    `gorm:"primaryKey;size:512"`
	Parent    string    `gorm:"size:512;index"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 固定表名.
func (Node) TableName() string {
	return "nodes"
}
