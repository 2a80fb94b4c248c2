package listener

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"net"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-framenet/config"
	"github.com/dep2p/go-framenet/internal/core/bufpool"
	"github.com/dep2p/go-framenet/internal/core/framing"
	"github.com/dep2p/go-framenet/internal/core/ratelimit"
	pkgif "github.com/dep2p/go-framenet/pkg/interfaces"
)

// ============================================================================
//                              测试协议
// ============================================================================

type testProtocol struct {
	echo      bool
	acceptErr error

	mu     sync.Mutex
	events []string

	messages chan string
	results  chan pkgif.Result
	closes   chan error
}

func newTestProtocol() *testProtocol {
	return &testProtocol{
		messages: make(chan string, 16),
		results:  make(chan pkgif.Result, 16),
		closes:   make(chan error, 16),
	}
}

func (p *testProtocol) record(ev string) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *testProtocol) OnAccept(pkgif.Connection) error {
	p.record("accept")
	return p.acceptErr
}

func (p *testProtocol) OnMessage(_ pkgif.Connection, frame []byte) ([]byte, error) {
	p.record("message")
	p.messages <- string(frame)
	if p.echo {
		return frame, nil
	}
	return nil, nil
}

func (p *testProtocol) OnPostProcess(_ pkgif.Connection, r pkgif.Result) {
	p.results <- r
}

func (p *testProtocol) OnClose(_ pkgif.Connection, reason error) {
	p.record("close")
	p.closes <- reason
}

func (p *testProtocol) nextMessage(t *testing.T) string {
	t.Helper()
	select {
	case m := <-p.messages:
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for OnMessage")
		return ""
	}
}

// ============================================================================
//                              测试辅助
// ============================================================================

func testOptions() Options {
	cfg := config.DefaultListenerConfig()
	cfg.Addr = "127.0.0.1:0"
	return Options{
		Listener:   cfg,
		BufferPool: config.DefaultBufferPoolConfig(),
		Frame:      config.DefaultFrameConfig(),
		Pool:       bufpool.New(1<<20, nil),
	}
}

func startListener(t *testing.T, p pkgif.Protocol, opts Options) *Listener {
	t.Helper()
	l, err := New(p, opts)
	require.NoError(t, err)
	require.NoError(t, l.BeginListening(context.Background()))
	t.Cleanup(func() {
		_ = l.EndListening()
		_ = l.CloseConnections()
	})
	return l
}

func dial(t *testing.T, l *Listener) net.Conn {
	t.Helper()
	c, err := net.DialTimeout("tcp", l.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readFrame(t *testing.T, r net.Conn) []byte {
	t.Helper()
	_ = r.SetReadDeadline(time.Now().Add(3 * time.Second))
	var prefix [framing.PrefixSize]byte
	_, err := io.ReadFull(r, prefix[:])
	require.NoError(t, err)
	payload := make([]byte, framing.DecodeLength(prefix[:]))
	_, err = io.ReadFull(r, payload)
	require.NoError(t, err)
	return payload
}

func expectEOF(t *testing.T, c net.Conn) {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, err := c.Read(make([]byte, 1))
	assert.Error(t, err)
	var ne net.Error
	if errors.As(err, &ne) {
		assert.False(t, ne.Timeout(), "connection should be closed by server")
	}
}

// ============================================================================
//                              端到端
// ============================================================================

// TestListener_HelloWholeAndSplit 整帧与拆分帧都恰好产生一次 OnMessage
func TestListener_HelloWholeAndSplit(t *testing.T) {
	p := newTestProtocol()
	l := startListener(t, p, testOptions())
	c := dial(t, l)

	_, err := c.Write([]byte{0x00, 0x00, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'})
	require.NoError(t, err)
	assert.Equal(t, "hello", p.nextMessage(t))

	_, err = c.Write([]byte{0x00, 0x00, 0x00, 0x05, 'h', 'e'})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = c.Write([]byte("llo"))
	require.NoError(t, err)
	assert.Equal(t, "hello", p.nextMessage(t))

	select {
	case m := <-p.messages:
		t.Fatalf("unexpected OnMessage %q", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListener_EchoAndOrdering(t *testing.T) {
	p := newTestProtocol()
	p.echo = true
	l := startListener(t, p, testOptions())
	c := dial(t, l)

	for _, msg := range []string{"a", "bb", "ccc"} {
		require.NoError(t, framing.WriteFrame(c, []byte(msg)))
	}
	for _, want := range []string{"a", "bb", "ccc"} {
		assert.Equal(t, want, string(readFrame(t, c)))
	}

	r := <-p.results
	assert.Equal(t, 1, r.FrameSize)
	assert.Equal(t, 1, r.ResponseSize)

	p.mu.Lock()
	assert.Equal(t, "accept", p.events[0])
	p.mu.Unlock()
	assert.Equal(t, 1, l.ConnectionCount())
}

func TestListener_AcceptErrorClosesConnection(t *testing.T) {
	p := newTestProtocol()
	p.acceptErr = errors.New("not welcome")
	l := startListener(t, p, testOptions())
	c := dial(t, l)

	expectEOF(t, c)
	select {
	case reason := <-p.closes:
		assert.ErrorIs(t, reason, p.acceptErr)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
	assert.Eventually(t, func() bool { return l.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestListener_PeerCloseNotifies(t *testing.T) {
	p := newTestProtocol()
	l := startListener(t, p, testOptions())
	c := dial(t, l)

	require.NoError(t, framing.WriteFrame(c, []byte("hi")))
	p.nextMessage(t)
	require.NoError(t, c.Close())

	select {
	case reason := <-p.closes:
		assert.NoError(t, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
	assert.Eventually(t, func() bool { return l.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

// TestListener_EndListeningKeepsConnections 停止监听不影响已接受的连接
func TestListener_EndListeningKeepsConnections(t *testing.T) {
	p := newTestProtocol()
	p.echo = true
	l := startListener(t, p, testOptions())
	c := dial(t, l)

	require.NoError(t, framing.WriteFrame(c, []byte("before")))
	assert.Equal(t, "before", string(readFrame(t, c)))

	addr := l.Addr().String()
	require.NoError(t, l.EndListening())
	require.NoError(t, l.EndListening())

	_, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	assert.Error(t, err)

	require.NoError(t, framing.WriteFrame(c, []byte("after")))
	assert.Equal(t, "after", string(readFrame(t, c)))

	require.NoError(t, l.CloseConnections())
	expectEOF(t, c)
	assert.Eventually(t, func() bool { return l.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)

	assert.ErrorIs(t, l.BeginListening(context.Background()), ErrListenerClosed)
}

func TestListener_ContextCancelStopsAccepting(t *testing.T) {
	l, err := New(newTestProtocol(), testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, l.BeginListening(ctx))
	addr := l.Addr().String()

	cancel()
	assert.Eventually(t, func() bool {
		c, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			_ = c.Close()
			return false
		}
		return true
	}, 2*time.Second, 20*time.Millisecond)
}

// TestListener_EndListeningDuringBind 绑定尚未完成时停止监听，绑定完成后立即关闭
func TestListener_EndListeningDuringBind(t *testing.T) {
	l, err := New(newTestProtocol(), testOptions())
	require.NoError(t, err)

	binding := make(chan struct{})
	release := make(chan struct{})
	l.control = func(string, string, syscall.RawConn) error {
		close(binding)
		<-release
		return nil
	}

	beginErr := make(chan error, 1)
	go func() { beginErr <- l.BeginListening(context.Background()) }()
	<-binding

	endErr := make(chan error, 1)
	go func() { endErr <- l.EndListening() }()
	assert.Eventually(t, l.closed.Load, time.Second, 5*time.Millisecond)

	close(release)

	select {
	case err := <-beginErr:
		assert.ErrorIs(t, err, ErrListenerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("BeginListening did not return")
	}
	select {
	case err := <-endErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("EndListening blocked after bind completed")
	}
	assert.Nil(t, l.Addr())
}

func TestListener_MaxConnections(t *testing.T) {
	p := newTestProtocol()
	opts := testOptions()
	opts.Listener.MaxConnections = 1
	l := startListener(t, p, opts)

	first := dial(t, l)
	require.NoError(t, framing.WriteFrame(first, []byte("one")))
	p.nextMessage(t)

	second := dial(t, l)
	expectEOF(t, second)
	assert.Equal(t, 1, l.ConnectionCount())
}

func TestListener_UploadThrottledResponse(t *testing.T) {
	limiter, err := ratelimit.New(ratelimit.Options{
		Upload:        pkgif.Quota{BytesPerInterval: 10, Burst: 1},
		Download:      pkgif.Quota{BytesPerInterval: 1 << 20, Burst: 4},
		ResetInterval: time.Hour,
	})
	require.NoError(t, err)
	defer limiter.Close()

	p := newTestProtocol()
	p.echo = true
	opts := testOptions()
	opts.Limiter = limiter
	l := startListener(t, p, opts)
	c := dial(t, l)

	require.NoError(t, framing.WriteFrame(c, []byte("hello")))
	assert.Equal(t, "hello", string(readFrame(t, c)))
	r := <-p.results
	assert.NoError(t, r.SendErr)

	require.NoError(t, framing.WriteFrame(c, []byte("again")))
	p.nextMessage(t)
	p.nextMessage(t)
	r = <-p.results
	assert.ErrorIs(t, r.SendErr, pkgif.ErrThrottled)
	assert.Equal(t, 0, r.ResponseSize)

	stats, err := limiter.StatsFor("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(9), stats.BytesSent)
	assert.Equal(t, int64(18), stats.BytesReceived)
}

func TestListener_TLS(t *testing.T) {
	opts := testOptions()
	opts.Listener.TLS = selfSignedTLS(t)

	p := newTestProtocol()
	p.echo = true
	l := startListener(t, p, opts)

	c, err := tls.Dial("tcp", l.Addr().String(), &tls.Config{InsecureSkipVerify: true})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, framing.WriteFrame(c, []byte("secure")))
	assert.Equal(t, "secure", string(readFrame(t, c)))
}

// ============================================================================
//                              错误路径
// ============================================================================

func TestListener_BindFailure(t *testing.T) {
	occupied := startListener(t, newTestProtocol(), testOptions())

	var fatal error
	opts := testOptions()
	opts.Listener.Addr = occupied.Addr().String()
	opts.OnFatal = func(err error) error {
		fatal = err
		return err
	}

	l, err := New(newTestProtocol(), opts)
	require.NoError(t, err)

	err = l.BeginListening(context.Background())
	assert.ErrorIs(t, err, ErrBindFailed)
	assert.ErrorIs(t, fatal, ErrBindFailed)
	assert.Nil(t, l.Addr())
	assert.NoError(t, l.EndListening())
}

func TestListener_DefaultFatalHandlerReturnsError(t *testing.T) {
	err := DefaultFatalHandler(ErrBindFailed)
	assert.ErrorIs(t, err, ErrBindFailed)
}

func TestListener_DoubleBegin(t *testing.T) {
	l := startListener(t, newTestProtocol(), testOptions())
	assert.ErrorIs(t, l.BeginListening(context.Background()), ErrAlreadyListening)
}

func TestNew_InvalidArguments(t *testing.T) {
	_, err := New(nil, testOptions())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	opts := testOptions()
	opts.Pool = nil
	_, err = New(newTestProtocol(), opts)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	opts = testOptions()
	opts.Listener.Addr = "bad"
	_, err = New(newTestProtocol(), opts)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func selfSignedTLS(t *testing.T) *tls.Config {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "framenet-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
		MinVersion:   tls.VersionTLS12,
	}
}
