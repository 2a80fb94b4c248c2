package framenet

import (
	"github.com/dep2p/go-framenet/internal/core/listener"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
)

// 公共类型别名，应用协议无需导入 pkg/interfaces
type (
	// Protocol 协议处理能力
	Protocol = pkgif.Protocol

	// CloseNotifier 可选的连接关闭通知
	CloseNotifier = pkgif.CloseNotifier

	// Connection 连接的协议视图
	Connection = pkgif.Connection

	// ConnectionStat 连接统计
	ConnectionStat = pkgif.ConnectionStat

	// Result 单帧处理结果
	Result = pkgif.Result

	// Direction 传输方向
	Direction = pkgif.Direction

	// EndpointStats 端点统计快照
	EndpointStats = pkgif.EndpointStats

	// FatalHandler 监听器致命故障策略
	FatalHandler = listener.FatalHandler
)

// 传输方向
const (
	DirectionUpload   = pkgif.DirectionUpload
	DirectionDownload = pkgif.DirectionDownload
)

// 预置的致命故障策略
var (
	// DefaultFatalHandler 记录日志并返回错误
	DefaultFatalHandler FatalHandler = listener.DefaultFatalHandler

	// ExitOnFatal 记录日志并终止进程
	ExitOnFatal FatalHandler = listener.ExitOnFatal
)
