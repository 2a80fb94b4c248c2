// Package interfaces 定义 framenet 的公共接口
//
// 本包采用扁平命名，一个接口文件对应一个实现目录：
//
// # Protocol 契约
//
// 由外部实现，核心只通过该契约交付帧：
//   - protocol.go       - Protocol / CloseNotifier / Result
//   - connection.go     - 协议看到的连接视图与统计
//
// # Core 能力
//
//   - bufpool.go        - 分级缓冲池（internal/core/bufpool）
//   - ratelimit.go      - 按端点的带宽配额（internal/core/ratelimit）
//
// # 错误
//
//   - errors.go         - 跨包共享的哨兵错误
//
// 接口实现位于 internal/core 下，外部用户通过根包 framenet 使用。
package interfaces
