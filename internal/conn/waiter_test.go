package conn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/bridgetest"
)

func TestWaiter_AlreadyConnected(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	require.NoError(t, srv.Session.Scan("+15551234567"))

	w := NewWaiter(newTestResolver(t, srv), 200*time.Millisecond, testLogger())

	start := time.Now()
	res := w.Wait(context.Background(), 5*time.Second)

	assert.True(t, res.Success)
	assert.Equal(t, "connected", res.Status)
	assert.Equal(t, "+15551234567", res.PhoneNumber)
	assert.Contains(t, res.Message, "+15551234567")
	// First poll is immediate.
	assert.Less(t, time.Since(start), 1*time.Second)
}

func TestWaiter_ConnectsMidWait(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))

	w := NewWaiter(newTestResolver(t, srv), 200*time.Millisecond, testLogger())

	ctx := context.Background()
	srv.ConnectAfter(ctx, 600*time.Millisecond, "+15551234567")

	start := time.Now()
	res := w.Wait(ctx, 10*time.Second)
	elapsed := time.Since(start)

	assert.True(t, res.Success)
	assert.Equal(t, "+15551234567", res.PhoneNumber)
	// Connected well before the deadline, shortly after the session flipped.
	assert.Greater(t, elapsed, 500*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestWaiter_Timeout(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	w := NewWaiter(newTestResolver(t, srv), 200*time.Millisecond, testLogger())

	start := time.Now()
	res := w.Wait(context.Background(), 1*time.Second)
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.Equal(t, "timeout", res.Status)
	assert.Contains(t, res.Message, "Timeout")
	assert.Empty(t, res.PhoneNumber)
	// The wait honors its deadline, with bounded overshoot.
	assert.GreaterOrEqual(t, elapsed, 1*time.Second)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestWaiter_TimeoutWithPendingQR(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))

	w := NewWaiter(newTestResolver(t, srv), 200*time.Millisecond, testLogger())

	res := w.Wait(context.Background(), 600*time.Millisecond)
	assert.False(t, res.Success)
	assert.Equal(t, "timeout", res.Status)
	assert.Contains(t, res.Message, "QR code")
}

func TestWaiter_BridgeDown(t *testing.T) {
	srv := bridgetest.NewServer()
	w := NewWaiter(newTestResolver(t, srv), 200*time.Millisecond, testLogger())
	srv.Close()

	res := w.Wait(context.Background(), 600*time.Millisecond)
	assert.False(t, res.Success)
	assert.Equal(t, "timeout", res.Status)
	assert.Contains(t, res.Message, "bridge is not running")
}
