// Package ratelimit 实现按端点、按方向的带宽准入控制
//
// # 配额模型
//
// 配额是"每个重置周期 N 字节"：每个端点每个方向维护一个累计字节计数器，
// 预留时若累计值将超过配额则拒绝且计数器保持不变；重置扫描按周期把
// 计数器整体清零，不做连续衰减。
//
// # 突发许可
//
// 每个端点每个方向有一个 semaphore.Weighted，容量为 Burst。预留必须先拿到
// 许可，等待超时视为拒绝。许可在预留结束后立即释放，无论成败。
//
// # 端点索引
//
// 端点条目存放在有界 LRU 中（MaxEndpoints），重置扫描同时移除空闲超过
// IdleEviction 且没有在途预留的条目。LRU 的锁只覆盖索引查找，
// 计数器本身是原子变量。
//
// # 使用示例
//
//	l, err := ratelimit.New(ratelimit.Options{
//	    Upload:        pkgif.Quota{BytesPerInterval: 100, Burst: 4},
//	    Download:      pkgif.Quota{BytesPerInterval: 100, Burst: 4},
//	    ResetInterval: time.Second,
//	})
//	ok, err := l.TryReserve("10.0.0.5", pkgif.DirectionUpload, 40, 100*time.Millisecond)
package ratelimit
