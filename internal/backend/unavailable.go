package backend

import (
	"context"
	"time"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/conn"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/store"
)

const unavailableMessage = "WhatsApp integration is not available"

// Unavailable is the explicit "integration cannot be loaded" variant.
// Every operation either returns ErrUnavailable or a result saying so;
// nothing is silently mocked.
type Unavailable struct{}

// NewUnavailable creates the unavailable backend.
func NewUnavailable() *Unavailable {
	return &Unavailable{}
}

func (u *Unavailable) Status(ctx context.Context) *StatusResult {
	return &StatusResult{Connected: false, BridgeRunning: false, Message: unavailableMessage}
}

func (u *Unavailable) QR(ctx context.Context) *QRResult {
	return &QRResult{Success: false, Message: unavailableMessage}
}

func (u *Unavailable) WaitForConnection(ctx context.Context, timeout time.Duration) *conn.WaitResult {
	return &conn.WaitResult{Success: false, Status: "unavailable", Message: unavailableMessage}
}

func (u *Unavailable) Reauthenticate(ctx context.Context) (*ActionResult, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) SendMessage(ctx context.Context, recipient, message string) (*ActionResult, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) SendFile(ctx context.Context, recipient, path string) (*ActionResult, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) SendAudio(ctx context.Context, recipient, path string) (*ActionResult, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) DownloadMedia(ctx context.Context, messageID, chatJID string) (*DownloadResult, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) SearchContacts(ctx context.Context, query string) ([]store.Contact, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) ListMessages(ctx context.Context, f store.MessageFilter) (string, error) {
	return "", ErrUnavailable
}

func (u *Unavailable) ListChats(ctx context.Context, f store.ChatFilter) ([]store.Chat, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) GetChat(ctx context.Context, chatJID string, includeLastMessage bool) (*store.Chat, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) GetDirectChatByContact(ctx context.Context, phone string) (*store.Chat, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) GetContactChats(ctx context.Context, jid string, limit, page int) ([]store.Chat, error) {
	return nil, ErrUnavailable
}

func (u *Unavailable) GetLastInteraction(ctx context.Context, jid string) (string, error) {
	return "", ErrUnavailable
}

func (u *Unavailable) GetMessageContext(ctx context.Context, messageID string, before, after int) (*store.MessageContext, error) {
	return nil, ErrUnavailable
}
