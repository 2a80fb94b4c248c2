package framing

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyReceiving 接收循环已启动
	ErrAlreadyReceiving = errors.New("framing: reader already receiving")

	// ErrReaderDisposed Reader 已释放或已进入终态
	ErrReaderDisposed = errors.New("framing: reader disposed")

	// ErrFrameTooLarge 声明长度超过上限
	ErrFrameTooLarge = errors.New("framing: frame too large")

	// ErrPayloadTooLarge 负载无法用 4 字节长度表示
	ErrPayloadTooLarge = errors.New("framing: payload exceeds uint32 length")

	// ErrReceiveFailed 接收故障，所有 *ReceiveError 都匹配此错误
	ErrReceiveFailed = errors.New("framing: receive failed")
)

// ReceiveError 接收循环故障
type ReceiveError struct {
	// Remote 远端地址
	Remote string

	// Op 出错的操作：read 或 decode
	Op string

	// Err 底层原因
	Err error
}

// Error 实现 error 接口
func (e *ReceiveError) Error() string {
	return fmt.Sprintf("framing: %s from %s: %v", e.Op, e.Remote, e.Err)
}

// Unwrap 返回底层原因
func (e *ReceiveError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrReceiveFailed) 成立
func (e *ReceiveError) Is(target error) bool {
	return target == ErrReceiveFailed
}
