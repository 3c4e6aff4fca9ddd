package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath 路径为空或包含非法字符.
var ErrInvalidPath = errors.New("invalid store path")

// forbidden 段内不允许出现的字符，* ? \ 会干扰 kv 的 pattern 匹配.
const forbidden = ".#$[]*?\\"

// Join 用 / 连接路径段.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split 拆分路径段.
func Split(path string) []string {
	return strings.Split(path, "/")
}

// Base 返回最后一个路径段.
func Base(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}

	return path
}

// Parent 返回父路径，顶层路径返回 "".
func Parent(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}

	return ""
}

// ValidatePath 检查路径的每一段非空且不含非法字符.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	for _, seg := range Split(path) {
		if err := ValidateSegment(seg); err != nil {
			return fmt.Errorf("%w in %q", err, path)
		}
	}

	return nil
}

// ValidateSegment 检查单个路径段.
func ValidateSegment(seg string) error {
	if seg == "" {
		return fmt.Errorf("%w: empty segment", ErrInvalidPath)
	}

	if i := strings.IndexAny(seg, forbidden); i >= 0 {
		return fmt.Errorf("%w: segment %q contains %q", ErrInvalidPath, seg, seg[i])
	}

	return nil
}

// SanitizeSegment 把 . # $ [ ] 替换为 _，用于把邮箱等外部输入变成路径段.
func SanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbidden, r) || r == '/' {
			return '_'
		}

		return r
	}, s)
}
