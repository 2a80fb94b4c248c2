package log

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.uber.org/zap"
)

// ============================================================================
//                              Sink 接口
// ============================================================================

// Sink 外部日志输出端
//
// 核心组件只向 Sink 输出已格式化的字符串。Sink 的实现属于外部协作者，
// 其失败（包括 panic）不会回传到 I/O 路径。
type Sink interface {
	Emit(level slog.Level, component, line string)
}

// SinkFunc 函数形式的 Sink
type SinkFunc func(level slog.Level, component, line string)

// Emit 实现 Sink 接口
func (f SinkFunc) Emit(level slog.Level, component, line string) {
	f(level, component, line)
}

// slogSink 输出到 *slog.Logger
type slogSink struct {
	l *slog.Logger
}

// NewSlogSink 创建基于 slog 的 Sink
//
// l 为 nil 时每次输出使用 slog.Default()。
func NewSlogSink(l *slog.Logger) Sink {
	return &slogSink{l: l}
}

func (s *slogSink) Emit(level slog.Level, component, line string) {
	l := s.l
	if l == nil {
		l = slog.Default()
	}
	l.Log(context.Background(), level, line, "component", component)
}

// zapSink 输出到 *zap.Logger
type zapSink struct {
	l *zap.Logger
}

// NewZapSink 创建基于 zap 的 Sink
func NewZapSink(l *zap.Logger) Sink {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapSink{l: l}
}

func (s *zapSink) Emit(level slog.Level, component, line string) {
	field := zap.String("component", component)
	switch {
	case level >= slog.LevelError:
		s.l.Error(line, field)
	case level >= slog.LevelWarn:
		s.l.Warn(line, field)
	case level >= slog.LevelInfo:
		s.l.Info(line, field)
	default:
		s.l.Debug(line, field)
	}
}

// ============================================================================
//                              Emitter
// ============================================================================

// Emitter 带组件名的格式化日志发射器
//
// Emitter 的零值不可用，使用 NewEmitter 创建；nil *Emitter 的所有方法均为空操作。
type Emitter struct {
	component string
	sink      Sink
	dropped   *atomic.Uint64
}

// NewEmitter 创建 Emitter
//
// sink 为 nil 时输出到 slog.Default()。
func NewEmitter(component string, sink Sink) *Emitter {
	if sink == nil {
		sink = NewSlogSink(nil)
	}
	return &Emitter{
		component: component,
		sink:      sink,
		dropped:   new(atomic.Uint64),
	}
}

// Named 返回共享同一 Sink 的子组件 Emitter
func (e *Emitter) Named(component string) *Emitter {
	if e == nil {
		return NewEmitter(component, nil)
	}
	return &Emitter{
		component: component,
		sink:      e.sink,
		dropped:   e.dropped,
	}
}

// Component 返回组件名
func (e *Emitter) Component() string {
	if e == nil {
		return ""
	}
	return e.component
}

// Dropped 返回因 Sink 失败而丢弃的日志条数
func (e *Emitter) Dropped() uint64 {
	if e == nil {
		return 0
	}
	return e.dropped.Load()
}

// Debugf 输出 Debug 级别日志
func (e *Emitter) Debugf(format string, args ...any) {
	e.emit(slog.LevelDebug, format, args...)
}

// Infof 输出 Info 级别日志
func (e *Emitter) Infof(format string, args ...any) {
	e.emit(slog.LevelInfo, format, args...)
}

// Warnf 输出 Warn 级别日志
func (e *Emitter) Warnf(format string, args ...any) {
	e.emit(slog.LevelWarn, format, args...)
}

// Errorf 输出 Error 级别日志
func (e *Emitter) Errorf(format string, args ...any) {
	e.emit(slog.LevelError, format, args...)
}

func (e *Emitter) emit(level slog.Level, format string, args ...any) {
	if e == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.dropped.Add(1)
		}
	}()
	e.sink.Emit(level, e.component, fmt.Sprintf(format, args...))
}
