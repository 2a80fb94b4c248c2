// Package framenet 提供长度前缀二进制协议的 TCP 服务器核心
//
// framenet 负责接受连接、从原始字节流中切分帧、把完整帧分发给可插拔的
// Protocol，并按远端端点执行上下行带宽配额。具体的应用协议（登录、聊天等）
// 只需实现 Protocol 接口。
//
// # 快速开始
//
//	type echo struct{}
//
//	func (echo) OnAccept(framenet.Connection) error { return nil }
//	func (echo) OnMessage(_ framenet.Connection, frame []byte) ([]byte, error) {
//	    return frame, nil
//	}
//	func (echo) OnPostProcess(framenet.Connection, framenet.Result) {}
//
//	srv, err := framenet.New(echo{}, framenet.WithListenAddr("0.0.0.0:7000"))
//	if err != nil { ... }
//	if err := srv.Start(ctx); err != nil { ... }
//	defer srv.Stop(context.Background())
//
// # 帧格式
//
// 每个消息为 4 字节大端序负载长度加负载本身，长度不含前缀。
//
// # 限速
//
// 配额是"每个重置周期 N 字节"：每个端点每个方向累计字节数，周期到达时整体清零。
// 入站帧超出下行配额时被丢弃，出站帧超出上行配额时 Send 返回 ErrThrottled。
//
// # 组件
//
//   - internal/core/bufpool: 分级缓冲池
//   - internal/core/ratelimit: 按端点带宽准入
//   - internal/core/framing: 帧编解码与接收循环
//   - internal/core/conn: 连接与处理器集合
//   - internal/core/listener: 接受循环
//   - internal/core/metrics: Prometheus 指标
package framenet
