// Package log 提供 framenet 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，提供按组件划分的懒加载 logger；
// 同时定义 Sink/Emitter，供核心组件向外部注入的日志端输出格式化字符串。
package log

import (
	"context"
	"io"
	"log/slog"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// New 创建文本格式的 logger
func New(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup 把进程默认 logger 重定向到 w
//
// json 为 true 时输出 JSON，否则输出文本。所有 LazyLogger 立即生效。
//
//	log.Setup(os.Stderr, log.LevelDebug, false)
func Setup(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var l *slog.Logger
	if json {
		l = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		l = New(w, opts)
	}
	slog.SetDefault(l)
	return l
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次调用时解析 slog.Default()，Setup 之后无需重新获取。
// 级别未启用时不构造属性。
//
//	var logger = log.Logger("core/listener")
//	logger.Info("开始监听", "addr", addr)
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args) }

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args) }

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *LazyLogger) log(level slog.Level, msg string, args []any) {
	ctx := context.Background()
	d := slog.Default()
	if !d.Enabled(ctx, level) {
		return
	}
	d.Log(ctx, level, msg, append([]any{"component", l.component}, args...)...)
}
