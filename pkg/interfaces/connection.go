// Package interfaces 定义 framenet 公共接口
//
// 本文件定义 Connection 接口，是协议看到的连接视图。
package interfaces

import (
	"net"
	"time"
)

// Connection 定义已接受连接的协议视图
type Connection interface {
	// ID 返回连接唯一标识
	ID() string

	// RemoteEndpoint 返回远端端点（远端地址的 host 部分），用作限速键
	RemoteEndpoint() string

	// RemoteAddr 返回远端地址
	RemoteAddr() net.Addr

	// LocalAddr 返回本地地址
	LocalAddr() net.Addr

	// Send 以帧格式发送负载
	//
	// 上行配额不足时返回 ErrThrottled（背压），写失败时连接被关闭。
	Send(payload []byte) error

	// TrySend 与 Send 相同，但配额不足以 false 表示
	TrySend(payload []byte) (bool, error)

	// Close 关闭连接，可重复调用
	Close() error

	// IsClosed 检查连接是否已关闭
	IsClosed() bool

	// Stat 返回连接统计
	Stat() ConnectionStat
}

// ConnectionStat 连接统计
type ConnectionStat struct {
	// Opened 建立时间
	Opened time.Time

	// FramesIn 已交付给协议的帧数
	FramesIn int64

	// FramesOut 已发送帧数
	FramesOut int64

	// BytesIn 已接收字节（含长度前缀）
	BytesIn int64

	// BytesOut 已发送字节（含长度前缀）
	BytesOut int64

	// FramesDropped 因下行配额不足被丢弃的帧数
	FramesDropped int64
}
