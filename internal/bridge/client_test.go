package bridge

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/bridgetest"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/config"
)

func newTestClient(t *testing.T, srv *bridgetest.Server) *Client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BridgeURL = srv.URL
	cfg.HealthTimeout = 500 * time.Millisecond
	cfg.StatusTimeout = 1 * time.Second
	return NewClient(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestClient_Health(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	assert.True(t, c.Health(ctx))

	srv.SetHealthy(false)
	assert.False(t, c.Health(ctx))
}

func TestClient_Health_Unreachable(t *testing.T) {
	srv := bridgetest.NewServer()
	url := srv.URL
	srv.Close()

	cfg := config.DefaultConfig()
	cfg.BridgeURL = url
	cfg.HealthTimeout = 500 * time.Millisecond
	c := NewClient(cfg, slog.Default())

	assert.False(t, c.Health(context.Background()))
}

func TestClient_Health_SlowBridge(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	srv.SetLatency(2 * time.Second)

	c := newTestClient(t, srv)

	start := time.Now()
	ok := c.Health(context.Background())
	elapsed := time.Since(start)

	assert.False(t, ok)
	// The probe gives up at its own timeout, well before the injected latency.
	assert.Less(t, elapsed, 1500*time.Millisecond)
}

func TestClient_Status(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Empty(t, status.PhoneNumber)

	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	require.NoError(t, srv.Session.Scan("+15551234567"))

	status, err = c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "+15551234567", status.PhoneNumber)
}

func TestClient_QR(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	// No session yet: no pairing string, no error.
	resp, err := c.QR(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.QRString)
	assert.Equal(t, "disconnected", resp.Status)

	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	resp, err = c.QR(ctx)
	require.NoError(t, err)
	assert.Equal(t, bridgetest.DefaultQRString, resp.QRString)
	assert.Equal(t, "pending", resp.Status)

	require.NoError(t, srv.Session.Expire())
	resp, err = c.QR(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.QRString)
	assert.Equal(t, "expired", resp.Status)

	// Connected bridges answer 400; that is still not a client error.
	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	require.NoError(t, srv.Session.Scan("+15551234567"))
	resp, err = c.QR(ctx)
	require.NoError(t, err)
	assert.Empty(t, resp.QRString)
}

func TestClient_Reauth(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	c := newTestClient(t, srv)

	resp, err := c.Reauth(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, bridgetest.StatePending, srv.Session.State())
}

func TestClient_SendText(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	// Sending while disconnected surfaces the bridge's error, not a panic.
	_, err := c.SendText(ctx, "+15550001111", "hello")
	assert.Error(t, err)

	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	require.NoError(t, srv.Session.Scan("+15551234567"))

	resp, err := c.SendText(ctx, "+15550001111", "hello")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Contains(t, resp.Message, "+15550001111")
}

func TestClient_SendMedia(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	require.NoError(t, srv.Session.Scan("+15551234567"))

	c := newTestClient(t, srv)
	ctx := context.Background()

	mediaPath := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(mediaPath, []byte("not really a jpeg"), 0644))

	resp, err := c.SendMedia(ctx, "+15550001111", mediaPath)
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestClient_SendMedia_MissingFile(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.SendMedia(context.Background(), "+15550001111", "/nonexistent/file.jpg")
	assert.Error(t, err)
}

func TestClient_DownloadMedia(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	c := newTestClient(t, srv)

	resp, err := c.DownloadMedia(context.Background(), "MSG123", "123@s.whatsapp.net")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "/tmp/whatsapp-media/MSG123", resp.FilePath)
}
