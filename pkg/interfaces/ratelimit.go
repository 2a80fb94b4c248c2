// Package interfaces 定义 framenet 公共接口
//
// 本文件定义 RateLimiter 接口，提供按端点、按方向的带宽准入控制。
package interfaces

import (
	"context"
	"time"
)

// Direction 传输方向
type Direction int

const (
	// DirectionUpload 上行：服务端发往端点的字节，计入 BytesSent
	DirectionUpload Direction = iota
	// DirectionDownload 下行：从端点接收的字节，计入 BytesReceived
	DirectionDownload
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirectionUpload:
		return "upload"
	case DirectionDownload:
		return "download"
	default:
		return "unknown"
	}
}

// Quota 单方向配额（不可变）
type Quota struct {
	// BytesPerInterval 每个重置周期允许的字节数
	BytesPerInterval int64

	// Burst 每端点并发许可数
	Burst int
}

// EndpointStats 端点统计快照
type EndpointStats struct {
	// BytesSent 本周期已发送字节
	BytesSent int64

	// BytesReceived 本周期已接收字节
	BytesReceived int64

	// LastReset 上次重置时间
	LastReset time.Time

	// LastActivity 上次成功预留的时间
	LastActivity time.Time
}

// RateLimiter 定义带宽准入控制接口
//
// 准入被拒（配额耗尽或等待许可超时）以 false 表示，属于正常的背压信号而非错误；
// 错误只在参数非法或限速器已释放时返回。
type RateLimiter interface {
	// TryReserve 为端点的指定方向预留 n 字节，最多等待 timeout 获取并发许可
	TryReserve(endpoint string, dir Direction, n int64, timeout time.Duration) (bool, error)

	// TryReserveContext 与 TryReserve 相同，等待上限由 ctx 决定
	TryReserveContext(ctx context.Context, endpoint string, dir Direction, n int64) (bool, error)

	// StatsFor 返回端点统计快照，未知端点返回零值
	StatsFor(endpoint string) (EndpointStats, error)

	// Quota 返回指定方向的配额
	Quota(dir Direction) Quota

	// Close 停止周期重置并释放所有许可等待者
	Close() error
}
