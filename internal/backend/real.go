package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/bridge"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/conn"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/store"
)

// Real serves every operation from the live bridge and its message
// database. Construct it with NewReal; a nil store degrades the data
// operations to ErrUnavailable while messaging keeps working.
type Real struct {
	client   *bridge.Client
	resolver *conn.Resolver
	waiter   *conn.Waiter
	store    *store.SQLiteStore
	log      *slog.Logger
}

// NewReal creates the real backend. store may be nil when the message
// database could not be opened.
func NewReal(client *bridge.Client, resolver *conn.Resolver, waiter *conn.Waiter, st *store.SQLiteStore, log *slog.Logger) *Real {
	return &Real{client: client, resolver: resolver, waiter: waiter, store: st, log: log}
}

func (r *Real) Status(ctx context.Context) *StatusResult {
	snap := r.resolver.Snapshot(ctx)

	result := &StatusResult{
		Connected:     snap.Connected(),
		BridgeRunning: snap.BridgeRunning,
		PhoneNumber:   snap.PhoneNumber,
		Message:       snap.Message,
	}
	if snap.QR != nil {
		result.QRCode = snap.QR.RawString
		result.QRImage = snap.QR.ImageDataURI
	}
	return result
}

func (r *Real) QR(ctx context.Context) *QRResult {
	snap := r.resolver.Snapshot(ctx)

	switch snap.State {
	case conn.StatePending:
		return &QRResult{
			Success:  true,
			QRString: snap.QR.RawString,
			QRASCII:  snap.QR.ASCIIRender,
			QRImage:  snap.QR.ImageDataURI,
			Message:  "Scan this QR code with WhatsApp",
		}
	case conn.StateConnected:
		return &QRResult{Success: false, Message: "No QR code available. WhatsApp might already be connected."}
	default:
		return &QRResult{Success: false, Message: snap.Message}
	}
}

func (r *Real) WaitForConnection(ctx context.Context, timeout time.Duration) *conn.WaitResult {
	return r.waiter.Wait(ctx, timeout)
}

func (r *Real) Reauthenticate(ctx context.Context) (*ActionResult, error) {
	resp, err := r.client.Reauth(ctx)
	if err != nil {
		return nil, err
	}
	msg := resp.Message
	if msg == "" {
		msg = "Re-authentication triggered. A new QR code will be available shortly."
	}
	return &ActionResult{Success: resp.Success, Message: msg}, nil
}

func (r *Real) SendMessage(ctx context.Context, recipient, message string) (*ActionResult, error) {
	jid, err := NormalizeRecipient(recipient)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.SendText(ctx, jid, message)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Success: resp.Success, Message: resp.Message}, nil
}

func (r *Real) SendFile(ctx context.Context, recipient, path string) (*ActionResult, error) {
	jid, err := NormalizeRecipient(recipient)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.SendMedia(ctx, jid, path)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Success: resp.Success, Message: resp.Message}, nil
}

func (r *Real) SendAudio(ctx context.Context, recipient, path string) (*ActionResult, error) {
	jid, err := NormalizeRecipient(recipient)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.SendAudio(ctx, jid, path)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Success: resp.Success, Message: resp.Message}, nil
}

func (r *Real) DownloadMedia(ctx context.Context, messageID, chatJID string) (*DownloadResult, error) {
	resp, err := r.client.DownloadMedia(ctx, messageID, chatJID)
	if err != nil {
		return nil, err
	}
	return &DownloadResult{Success: resp.Success, FilePath: resp.FilePath, Message: resp.Message}, nil
}

func (r *Real) SearchContacts(ctx context.Context, query string) ([]store.Contact, error) {
	if r.store == nil {
		return nil, ErrUnavailable
	}
	return r.store.SearchContacts(ctx, query)
}

func (r *Real) ListMessages(ctx context.Context, f store.MessageFilter) (string, error) {
	if r.store == nil {
		return "", ErrUnavailable
	}
	msgs, err := r.store.ListMessages(ctx, f)
	if err != nil {
		return "", err
	}
	return store.FormatMessages(msgs), nil
}

func (r *Real) ListChats(ctx context.Context, f store.ChatFilter) ([]store.Chat, error) {
	if r.store == nil {
		return nil, ErrUnavailable
	}
	return r.store.ListChats(ctx, f)
}

func (r *Real) GetChat(ctx context.Context, chatJID string, includeLastMessage bool) (*store.Chat, error) {
	if r.store == nil {
		return nil, ErrUnavailable
	}
	return r.store.GetChat(ctx, chatJID, includeLastMessage)
}

func (r *Real) GetDirectChatByContact(ctx context.Context, phone string) (*store.Chat, error) {
	if r.store == nil {
		return nil, ErrUnavailable
	}
	jid, err := NormalizeRecipient(phone)
	if err != nil {
		return nil, err
	}
	return r.store.GetChat(ctx, jid, true)
}

func (r *Real) GetContactChats(ctx context.Context, jid string, limit, page int) ([]store.Chat, error) {
	if r.store == nil {
		return nil, ErrUnavailable
	}
	return r.store.ListChats(ctx, store.ChatFilter{Query: jid, Limit: limit, Page: page})
}

func (r *Real) GetLastInteraction(ctx context.Context, jid string) (string, error) {
	if r.store == nil {
		return "", ErrUnavailable
	}
	msgs, err := r.store.ListMessages(ctx, store.MessageFilter{ChatJID: jid, Limit: 1})
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "No interactions found", nil
	}
	return msgs[0].Format(), nil
}

func (r *Real) GetMessageContext(ctx context.Context, messageID string, before, after int) (*store.MessageContext, error) {
	if r.store == nil {
		return nil, ErrUnavailable
	}
	return r.store.GetMessageContext(ctx, messageID, before, after)
}
