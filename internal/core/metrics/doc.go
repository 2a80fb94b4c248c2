// Package metrics 提供 framenet 的 Prometheus 监控指标
//
// 所有组件共享一个 *Metrics 实例，方法均对 nil 接收者安全：
// 指标被禁用时各组件拿到 nil，调用直接返回。
//
// # 指标
//
//   - connections_active / connections_accepted_total / connections_rejected_total
//   - frames_received_total / frames_sent_total / frames_dropped_total
//   - bytes_received_total / bytes_sent_total
//   - receive_errors_total
//   - ratelimit_decisions_total{direction, outcome}
//   - ratelimit_endpoints
//   - bufpool_leases / bufpool_allocations_total / bufpool_reuses_total
//   - frame_handle_seconds
//
// # Fx 模块
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    metrics.Module(),
//	    fx.Invoke(func(m *metrics.Metrics) { ... }),
//	)
package metrics
