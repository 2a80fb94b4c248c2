package framenet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期常量
// ════════════════════════════════════════════════════════════════════════════

const (
	// startTimeout Fx App 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout Fx App 停止超时
	stopTimeout = 10 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期管理
// ════════════════════════════════════════════════════════════════════════════

// Start 启动服务器
//
// 绑定失败时按 FatalHandler 处理，默认返回包装了 ErrBindFailed 的错误，
// 此时服务器被标记为已关闭。
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := s.app.Start(startCtx); err != nil {
		s.closed = true
		logger.Error("服务器启动失败", "error", err)
		return fmt.Errorf("start: %w", err)
	}

	s.started = true
	logger.Info("服务器已启动", "addr", s.listener.Addr().String())
	return nil
}

// Stop 停止服务器
//
// 停止接受新连接、关闭所有存活连接并释放限速器。
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	s.started = false
	s.closed = true

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	var err error
	err = multierr.Append(err, s.app.Stop(stopCtx))
	if n := s.listener.ConnectionCount(); n > 0 {
		err = multierr.Append(err, fmt.Errorf("%d connections still open after stop", n))
	}
	if err != nil {
		logger.Warn("服务器停止时出现错误", "error", err)
		return err
	}

	logger.Info("服务器已停止")
	return nil
}

// Close 以默认超时停止服务器，未启动时不返回错误
func (s *Server) Close() error {
	err := s.Stop(context.Background())
	if errors.Is(err, ErrNotStarted) {
		return nil
	}
	return err
}
