package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func newTracedDB(t *testing.T, cfg DBTracingConfig) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).Register(db))
	return db
}

func spanContext(t *testing.T) (context.Context, *tracetest.SpanRecorder, func()) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	return ctx, sr, func() { span.End() }
}

func attrs(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
}

func TestNewDBTracingPlugin_Defaults(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil)
	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
	assert.NotNil(t, p.logger)
}

func TestDBTracingPlugin_Register_Disabled(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	require.NoError(t, NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.New(core)).Register(db))
	assert.Equal(t, 1, logs.FilterMessage("Database tracing disabled, skipping otelgorm registration").Len())
	assert.Nil(t, db.Callback().Query().Get("ledger_trace:after_query"))
}

func TestDBTracingPlugin_Register_Enabled(t *testing.T) {
	db := newTracedDB(t, DBTracingConfig{Enabled: true, DBSystem: "sqlite"})
	assert.NotNil(t, db.Callback().Query().Get("ledger_trace:before_query"))
	assert.NotNil(t, db.Callback().Update().Get("ledger_trace:after_update"))
}

func TestDBTracingPlugin_AnnotatesParentSpan(t *testing.T) {
	db := newTracedDB(t, DBTracingConfig{Enabled: true, DBSystem: "sqlite", SlowQueryThresh: time.Hour})
	ctx, sr, end := spanContext(t)

	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "a"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Find(&rows).Error)
	end()

	var sawLock, sawTable bool
	for _, s := range sr.Ended() {
		a := attrs(s.Attributes())
		if v, ok := a["db.row_lock"]; ok && v.AsBool() {
			sawLock = true
		}
		if v, ok := a["db.sql.table"]; ok && v.AsString() == "traced_rows" {
			sawTable = true
		}
	}
	assert.True(t, sawTable, "expected a span annotated with the table name")
	assert.True(t, sawLock, "expected a span annotated with the row lock")
}

func TestDBTracingPlugin_MarksErrors(t *testing.T) {
	db := newTracedDB(t, DBTracingConfig{Enabled: true, DBSystem: "sqlite"})
	ctx, sr, end := spanContext(t)

	err := db.WithContext(ctx).Exec("SELECT * FROM missing_table").Error
	require.Error(t, err)
	end()

	var sawError bool
	for _, s := range sr.Ended() {
		if s.Status().Code == codes.Error {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestDBTracingPlugin_SlowQuery(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.NewNop())
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")

	db := &gorm.DB{Statement: &gorm.Statement{
		Context: context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-time.Second)),
		Table:   "payments",
	}}
	p.after(db)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	a := attrs(ended[0].Attributes())
	assert.True(t, a["db.slow_query"].AsBool())
	assert.Equal(t, "payments", a["db.sql.table"].AsString())
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "slow_query_warning", ended[0].Events()[0].Name)
}

func TestDBTracingPlugin_NilContext(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil)
	assert.NotPanics(t, func() {
		p.after(&gorm.DB{Statement: &gorm.Statement{}})
	})
}
