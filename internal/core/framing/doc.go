// Package framing 实现长度前缀帧的编解码与接收循环
//
// # 帧格式
//
//	+-------------------+---------------------+
//	| length (4B, BE)   | payload (length B)  |
//	+-------------------+---------------------+
//
// length 为负载字节数，不含前缀本身。
//
// # Reader
//
// Reader 独占一个连接的接收生命周期：单个接收 goroutine、单个在途 Read。
// 字节跨多次 Read 累积，帧完整后以副本交付给 Handler.OnFrame，
// 缓冲不足时从 BufferPool 租用更大的缓冲并归还旧缓冲。
//
// 状态机：
//
//	Idle -> Receiving -> {Idle | Closed | Faulted}
//
// Closed 与 Faulted 为终态，缓冲在接收循环退出时恰好归还一次。
package framing
