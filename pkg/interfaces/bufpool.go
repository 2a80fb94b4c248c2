// Package interfaces 定义 framenet 公共接口
//
// 本文件定义 BufferPool 接口，提供分级复用的字节缓冲租借。
package interfaces

// BufferPool 定义字节缓冲池接口
//
// 每个租出的缓冲要么被唯一持有者持有，要么在池中，二者不能同时成立。
// 实现必须支持多个 FrameReader 并发调用。
type BufferPool interface {
	// Rent 租用长度不小于 minSize 分级大小的缓冲
	//
	// minSize <= 0 时返回最小分级。不阻塞，池中无可用缓冲时直接分配。
	Rent(minSize int) []byte

	// Return 归还缓冲
	//
	// 归还后调用方不得再访问该缓冲。nil 被忽略。
	Return(buf []byte)

	// Outstanding 返回当前未归还的租借数
	Outstanding() int64
}
