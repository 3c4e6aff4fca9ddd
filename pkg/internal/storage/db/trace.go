package db

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yeisme/gradevault/pkg/tracing"
)

const spanInstanceKey = "gv:span"

// tracePlugin 在 GORM 回调前后开启与结束 span.
type tracePlugin struct{}

func (tracePlugin) Name() string { return "gradevault:tracing" }

func (tracePlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	for _, reg := range []struct {
		op     string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	} {
		if err := reg.before("gv:before_"+reg.op, startSpan("gorm."+reg.op)); err != nil {
			return err
		}

		if err := reg.after("gv:after_"+reg.op, endSpan); err != nil {
			return err
		}
	}

	return nil
}

func startSpan(name string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx, span := tracing.StartSpan(db.Statement.Context, name, trace.WithSpanKind(trace.SpanKindClient))
		db.Statement.Context = ctx
		db.InstanceSet(spanInstanceKey, span)
	}
}

func endSpan(db *gorm.DB) {
	v, ok := db.InstanceGet(spanInstanceKey)
	if !ok {
		return
	}

	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.String("db.table", db.Statement.Table),
		attribute.Int64("db.rows_affected", db.RowsAffected),
	)

	if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
