package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/conn"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/store"
)

// mockJID is the synthetic contact every mock data operation refers to.
const mockJID = "1234567890@s.whatsapp.net"

// Mock serves deterministic placeholder results of the same shape as the
// real backend. All values are clearly labeled as mock data; nothing is
// sent or persisted.
type Mock struct {
	now func() time.Time
}

// NewMock creates the mock backend.
func NewMock() *Mock {
	return &Mock{now: time.Now}
}

// Status reports the bridge as not running, which is the truth whenever
// the mock serves in place of the real backend.
func (m *Mock) Status(ctx context.Context) *StatusResult {
	return &StatusResult{
		Connected:     false,
		BridgeRunning: false,
		Message:       "WhatsApp bridge is not running. Please wait for it to start.",
	}
}

func (m *Mock) QR(ctx context.Context) *QRResult {
	return &QRResult{
		Success: false,
		Message: "WhatsApp bridge is not running. No QR code available.",
	}
}

// WaitForConnection returns immediately: a session that does not exist
// will not connect, and blocking for the full timeout helps nobody.
func (m *Mock) WaitForConnection(ctx context.Context, timeout time.Duration) *conn.WaitResult {
	return &conn.WaitResult{
		Success: false,
		Status:  "timeout",
		Message: fmt.Sprintf("Timeout: WhatsApp did not connect within %d seconds. WhatsApp bridge is not running.", int(timeout.Seconds())),
	}
}

func (m *Mock) Reauthenticate(ctx context.Context) (*ActionResult, error) {
	return &ActionResult{Success: false, Message: "Mock: bridge is not running, cannot re-authenticate"}, nil
}

func (m *Mock) SendMessage(ctx context.Context, recipient, message string) (*ActionResult, error) {
	if _, err := NormalizeRecipient(recipient); err != nil {
		return nil, err
	}
	return &ActionResult{Success: true, Message: fmt.Sprintf("Mock: Message sent to %s", recipient)}, nil
}

func (m *Mock) SendFile(ctx context.Context, recipient, path string) (*ActionResult, error) {
	if _, err := NormalizeRecipient(recipient); err != nil {
		return nil, err
	}
	return &ActionResult{Success: true, Message: fmt.Sprintf("Mock: File %s sent to %s", path, recipient)}, nil
}

func (m *Mock) SendAudio(ctx context.Context, recipient, path string) (*ActionResult, error) {
	if _, err := NormalizeRecipient(recipient); err != nil {
		return nil, err
	}
	return &ActionResult{Success: true, Message: fmt.Sprintf("Mock: Audio %s sent to %s", path, recipient)}, nil
}

func (m *Mock) DownloadMedia(ctx context.Context, messageID, chatJID string) (*DownloadResult, error) {
	return &DownloadResult{
		Success:  true,
		FilePath: fmt.Sprintf("/tmp/mock_media_%s.jpg", messageID),
		Message:  "Mock: media downloaded",
	}, nil
}

func (m *Mock) SearchContacts(ctx context.Context, query string) ([]store.Contact, error) {
	return []store.Contact{
		{
			JID:   mockJID,
			Name:  fmt.Sprintf("Contact matching '%s'", query),
			Phone: "1234567890",
		},
	}, nil
}

func (m *Mock) ListMessages(ctx context.Context, f store.MessageFilter) (string, error) {
	q := f.Query
	if q == "" {
		q = "all"
	}
	return fmt.Sprintf("[%s] Mock message for query: %s", m.now().Format("2006-01-02 15:04:05"), q), nil
}

func (m *Mock) ListChats(ctx context.Context, f store.ChatFilter) ([]store.Chat, error) {
	chat := store.Chat{
		JID:        mockJID,
		Name:       "Mock Chat",
		LastActive: m.now(),
	}
	if f.IncludeLastMessage {
		chat.LastMessage = "Last message here"
	}
	return []store.Chat{chat}, nil
}

func (m *Mock) GetChat(ctx context.Context, chatJID string, includeLastMessage bool) (*store.Chat, error) {
	chat := &store.Chat{
		JID:        chatJID,
		Name:       "Mock Chat",
		LastActive: m.now(),
	}
	if includeLastMessage {
		chat.LastMessage = "Last message"
	}
	return chat, nil
}

func (m *Mock) GetDirectChatByContact(ctx context.Context, phone string) (*store.Chat, error) {
	jid, err := NormalizeRecipient(phone)
	if err != nil {
		return nil, err
	}
	return &store.Chat{JID: jid, Name: "Mock Contact"}, nil
}

func (m *Mock) GetContactChats(ctx context.Context, jid string, limit, page int) ([]store.Chat, error) {
	return []store.Chat{{JID: jid, Name: "Mock Chat"}}, nil
}

func (m *Mock) GetLastInteraction(ctx context.Context, jid string) (string, error) {
	return fmt.Sprintf("Last interaction with %s", jid), nil
}

func (m *Mock) GetMessageContext(ctx context.Context, messageID string, before, after int) (*store.MessageContext, error) {
	return &store.MessageContext{
		Message: store.Message{ID: messageID, Content: "Target message"},
		Before:  []store.Message{},
		After:   []store.Message{},
	}, nil
}
