// Package rule 封装 go-playground/validator，结构体使用 rule 标签声明校验规则.
//
// 除内置规则外注册了：
//   - segment: 可作为存储路径段的非空字符串，不含 / . # $ [ ]
//   - mediatype: type/subtype 形式的内容类型，subtype 可以是 *
package rule

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once

	mediaTypeRe = regexp.MustCompile(`^[a-z0-9][a-z0-9!#$&^_.+-]*/(\*|[a-z0-9][a-z0-9!#$&^_.+-]*)$`)
)

// initValidator 复用 gin 的 validator 引擎，使请求绑定与配置校验共享同一套规则.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
		}
	}

	if inst == nil {
		inst = validator.New()
	}

	inst.SetTagName("rule")
	inst.RegisterTagNameFunc(fieldName)
	inst.RegisterAlias("segment", "required,excludesall=/.#$[]")
	_ = inst.RegisterValidation("mediatype", func(fl validator.FieldLevel) bool {
		return mediaTypeRe.MatchString(strings.ToLower(strings.TrimSpace(fl.Field().String())))
	})
}

// fieldName 错误中的字段名优先取 json、form、uri、mapstructure 标签.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri", "mapstructure"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}

		if name != "" {
			return name
		}
	}

	return f.Name
}

func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// RegisterValidation 注册自定义规则.
func RegisterValidation(tag string, fn validator.Func, opts ...bool) error {
	lazyInit()

	return inst.RegisterValidation(tag, fn, opts...)
}

// ValidationErrors 字段名到可读错误的映射.
type ValidationErrors map[string]string

// Errors 把 validator 的错误整理为 ValidationErrors，其他错误返回 nil.
func Errors(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make(ValidationErrors, len(verrs))
	for _, fe := range verrs {
		msg := "failed on '" + fe.Tag() + "'"
		if p := fe.Param(); p != "" {
			msg += " (" + p + ")"
		}

		out[fe.Namespace()] = msg
	}

	return out
}

// ValidateStruct 校验结构体.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则校验单个变量，例如 ValidateVar(email, "required,email").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// RegisterAlias 注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}
