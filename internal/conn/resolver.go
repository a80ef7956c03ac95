// Package conn resolves the bridge's connection state into authoritative
// snapshots and waits for authentication to complete. This is the only
// layer with timing and failure-mode behavior of its own; nothing in it
// ever propagates an error past its API.
package conn

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/bridge"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/qr"
)

// State is the derived connection state. It is recomputed from the
// bridge's live status on every call, never stored.
type State string

const (
	StateDisconnected State = "disconnected"
	StatePending      State = "pending"
	StateConnected    State = "connected"
	StateExpired      State = "expired"
)

// QRCredential is a pairing credential with its disposable renderings.
type QRCredential struct {
	RawString    string `json:"raw_string"`
	ASCIIRender  string `json:"ascii_render"`
	ImageDataURI string `json:"image_data_uri"`
}

// Snapshot is one authoritative view of the connection, constructed fresh
// per request and discarded. Invariants: QR is present iff State is
// pending; PhoneNumber is present iff State is connected.
type Snapshot struct {
	State         State         `json:"state"`
	BridgeRunning bool          `json:"bridge_running"`
	PhoneNumber   string        `json:"phone_number,omitempty"`
	QR            *QRCredential `json:"qr,omitempty"`
	Message       string        `json:"message"`
}

// Connected reports whether the snapshot represents an authenticated session.
func (s *Snapshot) Connected() bool {
	return s.State == StateConnected
}

// Resolver combines the health probe, the bridge's status endpoint, and
// the QR renderer into one state snapshot.
type Resolver struct {
	client *bridge.Client
	log    *slog.Logger
}

// NewResolver creates a resolver over the given bridge client.
func NewResolver(client *bridge.Client, log *slog.Logger) *Resolver {
	return &Resolver{client: client, log: log}
}

// Snapshot resolves the current connection state. It never returns an
// error: every failure mode after a healthy probe collapses into a
// disconnected snapshot carrying a diagnostic message.
func (r *Resolver) Snapshot(ctx context.Context) *Snapshot {
	if !r.client.Health(ctx) {
		return &Snapshot{
			State:   StateDisconnected,
			Message: "WhatsApp bridge is not running. Please wait for it to start.",
		}
	}

	status, err := r.client.Status(ctx)
	if err != nil {
		r.log.Warn("status resolution failed after healthy probe", "error", err)
		return &Snapshot{
			State:         StateDisconnected,
			BridgeRunning: true,
			Message:       fmt.Sprintf("Failed to get connection status: %v", err),
		}
	}

	if status.Connected {
		return &Snapshot{
			State:         StateConnected,
			BridgeRunning: true,
			PhoneNumber:   status.PhoneNumber,
			Message:       "WhatsApp is connected",
		}
	}

	qrResp, err := r.client.QR(ctx)
	if err != nil {
		r.log.Warn("qr resolution failed after healthy probe", "error", err)
		return &Snapshot{
			State:         StateDisconnected,
			BridgeRunning: true,
			Message:       fmt.Sprintf("Failed to get QR code: %v", err),
		}
	}

	if qrResp.QRString != "" {
		rendering, err := qr.Render(qrResp.QRString)
		if err != nil {
			r.log.Warn("pairing string render failed", "error", err)
			return &Snapshot{
				State:         StateDisconnected,
				BridgeRunning: true,
				Message:       fmt.Sprintf("Failed to render QR code: %v", err),
			}
		}
		return &Snapshot{
			State:         StatePending,
			BridgeRunning: true,
			QR: &QRCredential{
				RawString:    qrResp.QRString,
				ASCIIRender:  rendering.ASCII,
				ImageDataURI: rendering.ImageDataURI,
			},
			Message: "Please scan the QR code with WhatsApp on your phone",
		}
	}

	// No pairing string. Expired only when the bridge explicitly says so.
	if qrResp.Status == "expired" {
		msg := qrResp.Message
		if msg == "" {
			msg = "QR code has expired. Trigger re-authentication to get a new one."
		}
		return &Snapshot{State: StateExpired, BridgeRunning: true, Message: msg}
	}

	msg := qrResp.Message
	if msg == "" {
		msg = "No QR code available yet"
	}
	return &Snapshot{State: StateDisconnected, BridgeRunning: true, Message: msg}
}
