// Package backend defines the operations the tool layer dispatches to
// and the three implementations they can resolve to: the real bridge, a
// deterministic mock, and an explicit "not available" variant. Which one
// serves a call is a configuration decision, never an import accident.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/conn"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/store"
)

// ErrUnavailable is returned by every operation of the unavailable
// variant and by data operations whose store could not be opened.
var ErrUnavailable = errors.New("whatsapp integration is not available")

// StatusResult is the tool-facing connection status.
type StatusResult struct {
	Connected     bool   `json:"connected"`
	BridgeRunning bool   `json:"bridge_running"`
	QRCode        string `json:"qr_code,omitempty"`
	QRImage       string `json:"qr_image,omitempty"`
	PhoneNumber   string `json:"phone_number,omitempty"`
	Message       string `json:"message"`
}

// QRResult is the tool-facing pairing credential.
type QRResult struct {
	Success  bool   `json:"success"`
	QRString string `json:"qr_string,omitempty"`
	QRASCII  string `json:"qr_ascii,omitempty"`
	QRImage  string `json:"qr_image,omitempty"`
	Message  string `json:"message"`
}

// ActionResult is the outcome of a send or re-authentication request.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DownloadResult is the outcome of a media download request.
type DownloadResult struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path,omitempty"`
	Message  string `json:"message"`
}

// Backend is the full operation surface behind the MCP tools.
//
// Status, QR, and WaitForConnection never fail: connection trouble is
// data to them, not an error. The remaining operations return errors for
// conditions the caller must surface.
type Backend interface {
	Status(ctx context.Context) *StatusResult
	QR(ctx context.Context) *QRResult
	WaitForConnection(ctx context.Context, timeout time.Duration) *conn.WaitResult
	Reauthenticate(ctx context.Context) (*ActionResult, error)

	SendMessage(ctx context.Context, recipient, message string) (*ActionResult, error)
	SendFile(ctx context.Context, recipient, path string) (*ActionResult, error)
	SendAudio(ctx context.Context, recipient, path string) (*ActionResult, error)
	DownloadMedia(ctx context.Context, messageID, chatJID string) (*DownloadResult, error)

	SearchContacts(ctx context.Context, query string) ([]store.Contact, error)
	ListMessages(ctx context.Context, f store.MessageFilter) (string, error)
	ListChats(ctx context.Context, f store.ChatFilter) ([]store.Chat, error)
	GetChat(ctx context.Context, chatJID string, includeLastMessage bool) (*store.Chat, error)
	GetDirectChatByContact(ctx context.Context, phone string) (*store.Chat, error)
	GetContactChats(ctx context.Context, jid string, limit, page int) ([]store.Chat, error)
	GetLastInteraction(ctx context.Context, jid string) (string, error)
	GetMessageContext(ctx context.Context, messageID string, before, after int) (*store.MessageContext, error)
}

var (
	_ Backend = (*Real)(nil)
	_ Backend = (*Mock)(nil)
	_ Backend = (*Unavailable)(nil)
	_ Backend = (*Chain)(nil)
)
