package logger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// Gorm adapts a Logger to gorm's logger interface. SQL traces are emitted at
// debug level, slow queries at warn.
type Gorm struct {
	log *Logger
}

// NewGorm wraps l for use as gorm.Config.Logger.
func NewGorm(l *Logger) *Gorm {
	return &Gorm{log: l.With("component", "gorm")}
}

func (g *Gorm) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return g
}

func (g *Gorm) Info(_ context.Context, msg string, args ...interface{}) {
	g.log.Info(msg, args...)
}

func (g *Gorm) Warn(_ context.Context, msg string, args ...interface{}) {
	g.log.Warn(msg, args...)
}

func (g *Gorm) Error(_ context.Context, msg string, args ...interface{}) {
	g.log.Error(msg, args...)
}

func (g *Gorm) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error("query failed: %v [%s] rows=%d sql=%s", err, elapsed, rows, sql)
	case elapsed > slowQueryThreshold:
		sql, rows := fc()
		g.log.Warn("slow query [%s] rows=%d sql=%s", elapsed, rows, sql)
	case g.log.Enabled(LevelDebug):
		sql, rows := fc()
		g.log.Debug("[%s] rows=%d sql=%s", elapsed, rows, sql)
	}
}
