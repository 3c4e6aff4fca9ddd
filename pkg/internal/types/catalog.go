package types

import "github.com/yeisme/gradevault/pkg/configs"

// GradesResponse 年级目录.
type GradesResponse struct {
	Grades    []configs.Grade `json:"grades"`
	ChunkSize int             `json:"chunkSize"`
}

// AdminCheckRequest GET /admins/check?email=.
type AdminCheckRequest struct {
	Email string `form:"email" rule:"required,email"`
}

// AdminCheckResponse 管理员判定结果.
type AdminCheckResponse struct {
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}
