// Package interfaces 定义 framenet 公共接口
//
// 本文件定义 Protocol 能力契约。具体协议（登录、聊天等）由外部实现。
package interfaces

import "time"

// Protocol 定义协议处理能力
//
// 核心保证：
//   - OnAccept 对每个连接恰好调用一次，且早于任何 OnMessage
//   - OnMessage 每次只携带一个完整帧的负载，同一连接内按到达顺序调用
//   - OnPostProcess 紧跟对应的 OnMessage 调用
type Protocol interface {
	// OnAccept 新连接建立时调用，返回错误将关闭该连接
	OnAccept(c Connection) error

	// OnMessage 处理一个完整帧
	//
	// 返回的 response 非空时由核心按帧格式回写给对端；
	// 返回错误时，连接在 OnPostProcess 之后被关闭。
	// frame 为独立副本，协议可以持有。
	OnMessage(c Connection, frame []byte) (response []byte, err error)

	// OnPostProcess 帧处理完成后调用
	OnPostProcess(c Connection, result Result)
}

// CloseNotifier 可选接口：协议实现此接口以接收连接关闭通知
type CloseNotifier interface {
	// OnClose 连接关闭时调用一次，reason 为 nil 表示正常关闭
	OnClose(c Connection, reason error)
}

// Result 单帧处理结果
type Result struct {
	// FrameSize 负载字节数（不含长度前缀）
	FrameSize int

	// ResponseSize 回写负载字节数，未回写为 0
	ResponseSize int

	// Err OnMessage 返回的错误
	Err error

	// SendErr 回写失败的错误
	SendErr error

	// Elapsed OnMessage 耗时
	Elapsed time.Duration
}
