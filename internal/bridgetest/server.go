// Package bridgetest provides an in-process fake of the companion bridge
// for tests. Session lifecycle is held in an explicit state machine owned
// by the test, not in package-level globals, so concurrent tests get
// independent bridges.
package bridgetest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qmuntal/stateless"
)

// Session states.
const (
	StateDisconnected = "disconnected"
	StatePending      = "pending"
	StateConnected    = "connected"
	StateExpired      = "expired"
)

// Session triggers.
const (
	triggerIssueQR = "issue_qr"
	triggerScan    = "scan"
	triggerExpire  = "expire"
	triggerLogout  = "logout"
)

// DefaultQRString mimics the shape of a real pairing string: three
// comma-separated base64-ish segments, ~100 characters.
const DefaultQRString = "2@AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA,BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB,CCCCCCCCCCCCCCCC"

// Session models the bridge's single authenticated session.
type Session struct {
	mu          sync.Mutex
	sm          *stateless.StateMachine
	qrString    string
	phoneNumber string
}

// NewSession creates a session in the disconnected state.
func NewSession() *Session {
	s := &Session{}

	sm := stateless.NewStateMachine(StateDisconnected)

	sm.Configure(StateDisconnected).
		Permit(triggerIssueQR, StatePending)

	sm.Configure(StatePending).
		PermitReentry(triggerIssueQR). // pairing strings rotate
		Permit(triggerScan, StateConnected).
		Permit(triggerExpire, StateExpired)

	sm.Configure(StateExpired).
		Permit(triggerIssueQR, StatePending)

	sm.Configure(StateConnected).
		Permit(triggerLogout, StateDisconnected)

	s.sm = sm
	return s
}

// State returns the current session state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.MustState().(string)
}

// IssueQR moves the session to pending with a fresh pairing string.
func (s *Session) IssueQR(qr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sm.Fire(triggerIssueQR); err != nil {
		return err
	}
	s.qrString = qr
	return nil
}

// Scan simulates the phone scanning the QR code.
func (s *Session) Scan(phoneNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sm.Fire(triggerScan); err != nil {
		return err
	}
	s.phoneNumber = phoneNumber
	s.qrString = ""
	return nil
}

// Expire simulates the pairing string lapsing before a scan.
func (s *Session) Expire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sm.Fire(triggerExpire); err != nil {
		return err
	}
	s.qrString = ""
	return nil
}

// Logout drops the authenticated session.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sm.Fire(triggerLogout); err != nil {
		return err
	}
	s.phoneNumber = ""
	return nil
}

func (s *Session) snapshot() (state, qr, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sm.MustState().(string), s.qrString, s.phoneNumber
}

// Server is an httptest-backed fake bridge.
type Server struct {
	*httptest.Server
	Session *Session

	healthy atomic.Bool
	latency atomic.Int64 // nanoseconds injected before every response
}

// NewServer starts a fake bridge in the disconnected state. The caller
// must Close it.
func NewServer() *Server {
	s := &Server{Session: NewSession()}
	s.healthy.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/qr", s.handleQR)
	mux.HandleFunc("/api/reauth", s.handleReauth)
	mux.HandleFunc("/api/send", s.handleSend)
	mux.HandleFunc("/api/send-media", s.handleSendMedia)
	mux.HandleFunc("/api/send-audio", s.handleSendMedia)
	mux.HandleFunc("/api/download-media", s.handleDownload)

	s.Server = httptest.NewServer(mux)
	return s
}

// SetHealthy controls the liveness endpoint.
func (s *Server) SetHealthy(ok bool) {
	s.healthy.Store(ok)
}

// SetLatency injects a delay before every response, for timeout tests.
func (s *Server) SetLatency(d time.Duration) {
	s.latency.Store(int64(d))
}

// ConnectAfter flips the session to connected after the given delay,
// issuing a pairing string first when the session is not yet pending.
// Canceling ctx stops the flip. An illegal transition panics so a test
// never runs against a session that silently failed to connect.
func (s *Server) ConnectAfter(ctx context.Context, d time.Duration, phoneNumber string) {
	go func() {
		select {
		case <-time.After(d):
			if s.Session.State() != StatePending {
				if err := s.Session.IssueQR(DefaultQRString); err != nil {
					panic(fmt.Sprintf("bridgetest: ConnectAfter issue qr: %v", err))
				}
			}
			if err := s.Session.Scan(phoneNumber); err != nil {
				panic(fmt.Sprintf("bridgetest: ConnectAfter scan: %v", err))
			}
		case <-ctx.Done():
		}
	}()
}

func (s *Server) delay() {
	if d := s.latency.Load(); d > 0 {
		time.Sleep(time.Duration(d))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.delay()
	if !s.healthy.Load() {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.delay()
	state, _, phone := s.Session.snapshot()

	resp := map[string]interface{}{"connected": state == StateConnected}
	if state == StateConnected {
		resp["phone_number"] = phone
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQR(w http.ResponseWriter, _ *http.Request) {
	s.delay()
	state, qr, _ := s.Session.snapshot()

	switch state {
	case StateConnected:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Already connected"})
	case StatePending:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "pending",
			"qr_string": qr,
			"message":   "Scan this QR code with WhatsApp",
		})
	case StateExpired:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "expired",
			"message": "QR code has expired. Please restart the authentication process",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "disconnected",
			"message": "WhatsApp is not connected. Starting authentication...",
		})
	}
}

func (s *Server) handleReauth(w http.ResponseWriter, r *http.Request) {
	s.delay()
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Session.IssueQR(DefaultQRString); err != nil {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Re-authentication triggered. Check /api/qr for the new QR code",
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	s.delay()
	state, _, _ := s.Session.snapshot()
	if state != StateConnected {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "WhatsApp not connected",
		})
		return
	}

	var payload struct {
		Recipient string `json:"recipient"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "invalid payload",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Message sent to %s", payload.Recipient),
	})
}

func (s *Server) handleSendMedia(w http.ResponseWriter, r *http.Request) {
	s.delay()
	state, _, _ := s.Session.snapshot()
	if state != StateConnected {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "WhatsApp not connected",
		})
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "invalid multipart payload",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("File sent to %s", r.FormValue("recipient")),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.delay()
	var payload struct {
		MessageID string `json:"message_id"`
		ChatJID   string `json:"chat_jid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "invalid payload",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"file_path": fmt.Sprintf("/tmp/whatsapp-media/%s", payload.MessageID),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
