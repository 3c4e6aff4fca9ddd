package transfer

import (
	"errors"
	"fmt"

	"github.com/yeisme/gradevault/pkg/internal/store"
)

var (
	// ErrValidation 上传参数不合法.
	ErrValidation = errors.New("validation failed")
	// ErrStoreWrite 存储拒绝写入.
	ErrStoreWrite = errors.New("store write failed")
	// ErrPartialUpload 元数据已写入但分块未全部写入.
	ErrPartialUpload = errors.New("partial upload")
	// ErrReassembly 分块缺失、重复或校验失败，无法重组.
	ErrReassembly = errors.New("reassembly failed")
	// ErrNotFound 文件不存在，与 store.ErrNotFound 是同一个值.
	ErrNotFound = store.ErrNotFound
)

// ValidationError 描述哪个字段不合法.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is 使 errors.Is(err, ErrValidation) 成立.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PartialUploadError 分块写入中途失败，已触发清理.
type PartialUploadError struct {
	FileID  string
	Written int
	Total   int
	Err     error
}

func (e *PartialUploadError) Error() string {
	return fmt.Sprintf("partial upload of %s: wrote %d/%d chunks: %v", e.FileID, e.Written, e.Total, e.Err)
}

// Is 使 errors.Is(err, ErrPartialUpload) 成立.
func (e *PartialUploadError) Is(target error) bool {
	return target == ErrPartialUpload
}

func (e *PartialUploadError) Unwrap() error {
	return e.Err
}

// ReassemblyError 重组失败的原因.
type ReassemblyError struct {
	FileID string
	Reason string
}

func (e *ReassemblyError) Error() string {
	return fmt.Sprintf("reassemble %s: %s", e.FileID, e.Reason)
}

// Is 使 errors.Is(err, ErrReassembly) 成立.
func (e *ReassemblyError) Is(target error) bool {
	return target == ErrReassembly
}

func reassemblyFailed(fileID, format string, args ...any) error {
	return &ReassemblyError{FileID: fileID, Reason: fmt.Sprintf(format, args...)}
}

func storeWrite(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreWrite, op, err)
}
