package backend

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/bridge"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/bridgetest"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/config"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/conn"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newRealBackend(t *testing.T, srv *bridgetest.Server, st *store.SQLiteStore) *Real {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BridgeURL = srv.URL
	cfg.HealthTimeout = 500 * time.Millisecond
	cfg.StatusTimeout = 1 * time.Second

	client := bridge.NewClient(cfg, testLogger())
	resolver := conn.NewResolver(client, testLogger())
	waiter := conn.NewWaiter(resolver, 200*time.Millisecond, testLogger())
	return NewReal(client, resolver, waiter, st, testLogger())
}

func seededStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertChat(ctx, &store.Chat{JID: "15551234567@s.whatsapp.net", Name: "Alice", LastActive: base}))
	require.NoError(t, st.UpsertMessage(ctx, &store.Message{
		ID: "M1", ChatJID: "15551234567@s.whatsapp.net", Sender: "15551234567",
		Content: "hello there", Timestamp: base,
	}))
	return st
}

func TestRealStatus_BridgeDown(t *testing.T) {
	srv := bridgetest.NewServer()
	b := newRealBackend(t, srv, nil)
	srv.Close()

	status := b.Status(context.Background())
	assert.False(t, status.Connected)
	assert.False(t, status.BridgeRunning)
	assert.Empty(t, status.QRCode)
	assert.NotEmpty(t, status.Message)
}

func TestRealStatus_PendingCarriesQR(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))

	b := newRealBackend(t, srv, nil)
	status := b.Status(context.Background())

	assert.False(t, status.Connected)
	assert.True(t, status.BridgeRunning)
	assert.Equal(t, bridgetest.DefaultQRString, status.QRCode)
	assert.NotEmpty(t, status.QRImage)
	assert.Empty(t, status.PhoneNumber)
}

func TestRealStatus_Connected(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	require.NoError(t, srv.Session.Scan("+15551234567"))

	b := newRealBackend(t, srv, nil)
	status := b.Status(context.Background())

	assert.True(t, status.Connected)
	assert.True(t, status.BridgeRunning)
	assert.Equal(t, "+15551234567", status.PhoneNumber)
	assert.Empty(t, status.QRCode)
}

func TestRealQR_States(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	b := newRealBackend(t, srv, nil)
	ctx := context.Background()

	res := b.QR(ctx)
	assert.False(t, res.Success)
	assert.Empty(t, res.QRString)

	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	res = b.QR(ctx)
	assert.True(t, res.Success)
	assert.Equal(t, bridgetest.DefaultQRString, res.QRString)
	assert.Contains(t, res.QRASCII, "█")
	assert.NotEmpty(t, res.QRImage)

	require.NoError(t, srv.Session.Scan("+15551234567"))
	res = b.QR(ctx)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already be connected")
}

func TestRealSendMessage_NormalizesRecipient(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	require.NoError(t, srv.Session.Scan("+15551234567"))

	b := newRealBackend(t, srv, nil)

	res, err := b.SendMessage(context.Background(), "+15550001111", "hi")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "15550001111@s.whatsapp.net")

	_, err = b.SendMessage(context.Background(), "", "hi")
	assert.Error(t, err)
}

func TestRealDataOps(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	b := newRealBackend(t, srv, seededStore(t))
	ctx := context.Background()

	contacts, err := b.SearchContacts(ctx, "Alice")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "15551234567", contacts[0].Phone)

	listing, err := b.ListMessages(ctx, store.MessageFilter{Query: "hello"})
	require.NoError(t, err)
	assert.Contains(t, listing, "hello there")

	chats, err := b.ListChats(ctx, store.ChatFilter{IncludeLastMessage: true})
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "hello there", chats[0].LastMessage)

	chat, err := b.GetDirectChatByContact(ctx, "15551234567")
	require.NoError(t, err)
	assert.Equal(t, "Alice", chat.Name)

	last, err := b.GetLastInteraction(ctx, "15551234567@s.whatsapp.net")
	require.NoError(t, err)
	assert.Contains(t, last, "hello there")

	last, err = b.GetLastInteraction(ctx, "nobody@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, "No interactions found", last)
}

func TestRealDataOps_NilStore(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()

	b := newRealBackend(t, srv, nil)
	ctx := context.Background()

	_, err := b.SearchContacts(ctx, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = b.ListMessages(ctx, store.MessageFilter{})
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = b.GetMessageContext(ctx, "M1", 1, 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMock_Shapes(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	status := m.Status(ctx)
	assert.False(t, status.Connected)
	assert.False(t, status.BridgeRunning)

	qr := m.QR(ctx)
	assert.False(t, qr.Success)

	res := m.WaitForConnection(ctx, 30*time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, "timeout", res.Status)

	send, err := m.SendMessage(ctx, "15550001111", "hi")
	require.NoError(t, err)
	assert.True(t, send.Success)
	assert.Equal(t, "Mock: Message sent to 15550001111", send.Message)

	dl, err := m.DownloadMedia(ctx, "MSG1", "x@s.whatsapp.net")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mock_media_MSG1.jpg", dl.FilePath)

	contacts, err := m.SearchContacts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Contact matching 'alice'", contacts[0].Name)

	listing, err := m.ListMessages(ctx, store.MessageFilter{})
	require.NoError(t, err)
	assert.Contains(t, listing, "Mock message for query: all")

	mctx, err := m.GetMessageContext(ctx, "M9", 5, 5)
	require.NoError(t, err)
	assert.Equal(t, "M9", mctx.Message.ID)
	assert.Empty(t, mctx.Before)
}

func TestUnavailable(t *testing.T) {
	u := NewUnavailable()
	ctx := context.Background()

	status := u.Status(ctx)
	assert.False(t, status.Connected)
	assert.Contains(t, status.Message, "not available")

	res := u.WaitForConnection(ctx, time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, "unavailable", res.Status)

	_, err := u.SendMessage(ctx, "15550001111", "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = u.SearchContacts(ctx, "x")
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = u.Reauthenticate(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChain_RoutesOnHealth(t *testing.T) {
	srv := bridgetest.NewServer()
	defer srv.Close()
	require.NoError(t, srv.Session.IssueQR(bridgetest.DefaultQRString))
	require.NoError(t, srv.Session.Scan("+15551234567"))

	cfg := config.DefaultConfig()
	cfg.BridgeURL = srv.URL
	cfg.HealthTimeout = 500 * time.Millisecond
	cfg.StatusTimeout = 1 * time.Second

	client := bridge.NewClient(cfg, testLogger())
	resolver := conn.NewResolver(client, testLogger())
	waiter := conn.NewWaiter(resolver, 200*time.Millisecond, testLogger())
	chain := NewFromConfig(cfg, client, resolver, waiter, nil, testLogger())

	ctx := context.Background()

	// Healthy bridge: the real backend answers.
	res, err := chain.SendMessage(ctx, "15550001111", "hi")
	require.NoError(t, err)
	assert.Contains(t, res.Message, "@s.whatsapp.net")

	// Unhealthy bridge: the mock answers with the same shape.
	srv.SetHealthy(false)
	res, err = chain.SendMessage(ctx, "15550001111", "hi")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Mock: Message sent to 15550001111", res.Message)

	contacts, err := chain.SearchContacts(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Contains(t, contacts[0].Name, "alice")

	// Connection status stays truthful instead of going to the mock.
	status := chain.Status(ctx)
	assert.False(t, status.Connected)
	assert.False(t, status.BridgeRunning)
}

func TestNewFromConfig_Variants(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.Backend = config.BackendMock
	assert.IsType(t, &Mock{}, NewFromConfig(cfg, nil, nil, nil, nil, testLogger()))

	cfg.Backend = config.BackendUnavailable
	assert.IsType(t, &Unavailable{}, NewFromConfig(cfg, nil, nil, nil, nil, testLogger()))
}
