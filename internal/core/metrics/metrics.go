package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 限速判定结果标签
const (
	OutcomeAdmitted = "admitted"
	OutcomeQuota    = "quota"
	OutcomeTimeout  = "timeout"
)

// Metrics framenet 指标集合
type Metrics struct {
	connsActive   prometheus.Gauge
	connsAccepted prometheus.Counter
	connsRejected prometheus.Counter

	framesIn      prometheus.Counter
	framesOut     prometheus.Counter
	framesDropped prometheus.Counter
	bytesIn       prometheus.Counter
	bytesOut      prometheus.Counter
	recvErrors    prometheus.Counter
	handleSeconds prometheus.Histogram

	rateDecisions *prometheus.CounterVec
	endpoints     prometheus.Gauge

	bufLeases prometheus.Gauge
	bufAllocs prometheus.Counter
	bufReuses prometheus.Counter
}

// New 创建并注册指标
//
// reg 为 nil 时使用独立的 prometheus.Registry，避免同一进程内多个实例冲突。
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}
	gauge := func(subsystem, name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		})
	}

	m := &Metrics{
		connsActive:   gauge("", "connections_active", "Connections currently open."),
		connsAccepted: counter("", "connections_accepted_total", "Connections accepted."),
		connsRejected: counter("", "connections_rejected_total", "Connections closed right after accept because of the connection cap."),
		framesIn:      counter("", "frames_received_total", "Frames delivered to the protocol."),
		framesOut:     counter("", "frames_sent_total", "Frames written to peers."),
		framesDropped: counter("", "frames_dropped_total", "Inbound frames dropped by the download quota."),
		bytesIn:       counter("", "bytes_received_total", "Framed bytes received, prefix included."),
		bytesOut:      counter("", "bytes_sent_total", "Framed bytes sent, prefix included."),
		recvErrors:    counter("", "receive_errors_total", "Receive loops that ended with an I/O or framing fault."),
		handleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_handle_seconds",
			Help:      "Time spent in Protocol.OnMessage.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		rateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limiter reservations by direction and outcome.",
		}, []string{"direction", "outcome"}),
		endpoints: gauge("ratelimit", "endpoints", "Endpoints currently tracked by the rate limiter."),
		bufLeases: gauge("bufpool", "leases", "Buffers currently leased from the pool."),
		bufAllocs: counter("bufpool", "allocations_total", "Buffers allocated because no pooled buffer was available."),
		bufReuses: counter("bufpool", "reuses_total", "Buffers served from the pool."),
	}

	collectors := []prometheus.Collector{
		m.connsActive, m.connsAccepted, m.connsRejected,
		m.framesIn, m.framesOut, m.framesDropped,
		m.bytesIn, m.bytesOut, m.recvErrors, m.handleSeconds,
		m.rateDecisions, m.endpoints,
		m.bufLeases, m.bufAllocs, m.bufReuses,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// ==================== 连接 ====================

// ConnOpened 记录新连接
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connsAccepted.Inc()
	m.connsActive.Inc()
}

// ConnClosed 记录连接关闭
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connsActive.Dec()
}

// ConnRejected 记录因连接数上限被拒绝的连接
func (m *Metrics) ConnRejected() {
	if m == nil {
		return
	}
	m.connsRejected.Inc()
}

// ==================== 帧 ====================

// FrameReceived 记录交付给协议的帧
func (m *Metrics) FrameReceived(wireBytes int, handled time.Duration) {
	if m == nil {
		return
	}
	m.framesIn.Inc()
	m.bytesIn.Add(float64(wireBytes))
	m.handleSeconds.Observe(handled.Seconds())
}

// FrameSent 记录已发送的帧
func (m *Metrics) FrameSent(wireBytes int) {
	if m == nil {
		return
	}
	m.framesOut.Inc()
	m.bytesOut.Add(float64(wireBytes))
}

// FrameDropped 记录被下行配额丢弃的帧
func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.framesDropped.Inc()
}

// ReceiveError 记录接收故障
func (m *Metrics) ReceiveError() {
	if m == nil {
		return
	}
	m.recvErrors.Inc()
}

// ==================== 限速 ====================

// RateDecision 记录一次限速判定
func (m *Metrics) RateDecision(direction, outcome string) {
	if m == nil {
		return
	}
	m.rateDecisions.WithLabelValues(direction, outcome).Inc()
}

// SetEndpoints 设置跟踪的端点数
func (m *Metrics) SetEndpoints(n int) {
	if m == nil {
		return
	}
	m.endpoints.Set(float64(n))
}

// ==================== 缓冲池 ====================

// BufferRented 记录一次租借，reused 表示缓冲来自池
func (m *Metrics) BufferRented(reused bool) {
	if m == nil {
		return
	}
	m.bufLeases.Inc()
	if reused {
		m.bufReuses.Inc()
	} else {
		m.bufAllocs.Inc()
	}
}

// BufferReturned 记录一次归还
func (m *Metrics) BufferReturned() {
	if m == nil {
		return
	}
	m.bufLeases.Dec()
}
