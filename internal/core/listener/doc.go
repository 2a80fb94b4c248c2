// Package listener 实现单端口的连接接受循环
//
// Listener 绑定一个 TCP 端口（可选 TLS 包装），为每个接受的连接创建
// conn.Conn 并把它的处理器集合接到 Protocol 上：OnAccept 先于任何
// OnMessage 调用，每个连接在自己的 goroutine 上运行，接受循环不会被
// 消息处理阻塞。
//
// 绑定失败交给 FatalHandler 决定：默认记录日志并返回 ErrBindFailed，
// ExitOnFatal 终止进程。
//
// EndListening 只停止接受新连接，已接受的连接由 CloseConnections 关闭。
package listener
