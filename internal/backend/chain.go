package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/bridge"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/config"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/conn"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/store"
)

// Chain routes each call to the real backend when the bridge is healthy
// and to the mock otherwise. Connection operations always go to the real
// backend: they report degraded states truthfully on their own.
//
// The health probe runs once per routed call. A single failed probe
// resolves the call to the mock; retrying is the caller's decision.
type Chain struct {
	real    Backend
	mock    Backend
	healthy func(ctx context.Context) bool
	log     *slog.Logger
}

// NewChain creates a chain over the given variants.
func NewChain(real, mock Backend, healthy func(ctx context.Context) bool, log *slog.Logger) *Chain {
	return &Chain{real: real, mock: mock, healthy: healthy, log: log}
}

// route picks the serving backend for one messaging or data call.
func (c *Chain) route(ctx context.Context) Backend {
	if c.healthy(ctx) {
		return c.real
	}
	c.log.Debug("bridge unhealthy, serving mock result")
	return c.mock
}

func (c *Chain) Status(ctx context.Context) *StatusResult {
	return c.real.Status(ctx)
}

func (c *Chain) QR(ctx context.Context) *QRResult {
	return c.real.QR(ctx)
}

func (c *Chain) WaitForConnection(ctx context.Context, timeout time.Duration) *conn.WaitResult {
	return c.real.WaitForConnection(ctx, timeout)
}

func (c *Chain) Reauthenticate(ctx context.Context) (*ActionResult, error) {
	return c.route(ctx).Reauthenticate(ctx)
}

func (c *Chain) SendMessage(ctx context.Context, recipient, message string) (*ActionResult, error) {
	return c.route(ctx).SendMessage(ctx, recipient, message)
}

func (c *Chain) SendFile(ctx context.Context, recipient, path string) (*ActionResult, error) {
	return c.route(ctx).SendFile(ctx, recipient, path)
}

func (c *Chain) SendAudio(ctx context.Context, recipient, path string) (*ActionResult, error) {
	return c.route(ctx).SendAudio(ctx, recipient, path)
}

func (c *Chain) DownloadMedia(ctx context.Context, messageID, chatJID string) (*DownloadResult, error) {
	return c.route(ctx).DownloadMedia(ctx, messageID, chatJID)
}

func (c *Chain) SearchContacts(ctx context.Context, query string) ([]store.Contact, error) {
	return c.route(ctx).SearchContacts(ctx, query)
}

func (c *Chain) ListMessages(ctx context.Context, f store.MessageFilter) (string, error) {
	return c.route(ctx).ListMessages(ctx, f)
}

func (c *Chain) ListChats(ctx context.Context, f store.ChatFilter) ([]store.Chat, error) {
	return c.route(ctx).ListChats(ctx, f)
}

func (c *Chain) GetChat(ctx context.Context, chatJID string, includeLastMessage bool) (*store.Chat, error) {
	return c.route(ctx).GetChat(ctx, chatJID, includeLastMessage)
}

func (c *Chain) GetDirectChatByContact(ctx context.Context, phone string) (*store.Chat, error) {
	return c.route(ctx).GetDirectChatByContact(ctx, phone)
}

func (c *Chain) GetContactChats(ctx context.Context, jid string, limit, page int) ([]store.Chat, error) {
	return c.route(ctx).GetContactChats(ctx, jid, limit, page)
}

func (c *Chain) GetLastInteraction(ctx context.Context, jid string) (string, error) {
	return c.route(ctx).GetLastInteraction(ctx, jid)
}

func (c *Chain) GetMessageContext(ctx context.Context, messageID string, before, after int) (*store.MessageContext, error) {
	return c.route(ctx).GetMessageContext(ctx, messageID, before, after)
}

// NewFromConfig builds the configured backend variant. st may be nil.
func NewFromConfig(cfg *config.Config, client *bridge.Client, resolver *conn.Resolver, waiter *conn.Waiter, st *store.SQLiteStore, log *slog.Logger) Backend {
	switch cfg.Backend {
	case config.BackendMock:
		return NewMock()
	case config.BackendUnavailable:
		return NewUnavailable()
	default:
		real := NewReal(client, resolver, waiter, st, log)
		return NewChain(real, NewMock(), client.Health, log)
	}
}
