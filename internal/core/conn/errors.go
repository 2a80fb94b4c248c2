package conn

import (
	"errors"

	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
)

var (
	// ErrConnectionClosed 连接已关闭
	ErrConnectionClosed = pkgif.ErrConnectionClosed

	// ErrThrottled 上行配额不足
	ErrThrottled = pkgif.ErrThrottled

	// ErrWriteFailed 写出失败，连接已被关闭
	ErrWriteFailed = errors.New("conn: write failed")
)
