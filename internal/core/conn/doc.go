// Package conn 封装已接受的连接
//
// Conn 拥有一个 framing.Reader 和一条串行化的写出路径，并持有一个处理器集合
// （Events）。处理器集合保存在原子指针中，关闭时被恰好一次地置空，
// 之后不会再有任何回调。
//
// 入站帧在交付前按 4+len 字节预留下行配额，被拒绝的帧被丢弃并计数；
// 出站帧按同样规则预留上行配额，拒绝以 ErrThrottled 表示。
package conn
