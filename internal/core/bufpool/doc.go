// Package bufpool 实现分级字节缓冲池
//
// 缓冲按 2 的幂分级（最小 256 字节），每个分级对应一个 sync.Pool。
// 超过最大分级的请求按需精确分配，归还时直接丢弃。
//
// 租借计数（Outstanding）让"每个缓冲要么被唯一持有者持有、要么在池中"
// 这一约束可以被测试观察到。
package bufpool
