package listener

import "errors"

var (
	// ErrBindFailed 绑定端口失败
	ErrBindFailed = errors.New("listener: bind failed")

	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("listener: closed")

	// ErrAlreadyListening 已在监听
	ErrAlreadyListening = errors.New("listener: already listening")

	// ErrInvalidArgument 参数非法
	ErrInvalidArgument = errors.New("listener: invalid argument")
)
