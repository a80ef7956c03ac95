// Package bridge provides the HTTP client for the companion WhatsApp
// bridge process. The bridge owns the protocol session; this client only
// forwards requests and never retries on its own.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/config"
)

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	Connected   bool   `json:"connected"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// QRResponse is the payload of GET /api/qr. Status is set by bridges that
// track session lifecycle ("pending", "expired", "connected"); older
// bridges only return the pairing string.
type QRResponse struct {
	Status   string `json:"status,omitempty"`
	QRString string `json:"qr_string,omitempty"`
	QRASCII  string `json:"qr_ascii,omitempty"`
	QRBase64 string `json:"qr_base64,omitempty"`
	Message  string `json:"message,omitempty"`
}

// SendResponse is the payload of the send and reauth endpoints.
type SendResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DownloadResponse is the payload of POST /api/download-media.
type DownloadResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
	Message  string `json:"message,omitempty"`
}

// Client is an HTTP client for the bridge. Configuration is read-only
// after construction, so a single Client is safe for concurrent use.
type Client struct {
	baseURL  string
	authUser string
	authPass string

	healthTimeout time.Duration
	statusTimeout time.Duration
	sendTimeout   time.Duration
	mediaTimeout  time.Duration

	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a bridge client from configuration.
func NewClient(cfg *config.Config, log *slog.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(cfg.BridgeURL, "/"),
		authUser:      cfg.AuthUser,
		authPass:      cfg.AuthPass,
		healthTimeout: cfg.HealthTimeout,
		statusTimeout: cfg.StatusTimeout,
		sendTimeout:   cfg.SendTimeout,
		mediaTimeout:  cfg.MediaTimeout,
		// Per-call deadlines come from contexts; no client-wide timeout.
		httpClient: &http.Client{},
		log:        log,
	}
}

// BaseURL returns the configured bridge base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health reports whether the bridge answers its liveness endpoint within
// the health timeout. Every failure mode collapses to false; this is the
// single gate every higher component consults before trusting the bridge.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("bridge health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Status fetches the bridge's connection status.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.getJSON(ctx, "/api/status", c.statusTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QR fetches the current pairing credential. A bridge that is already
// connected, or has no pairing string yet, answers with a non-2xx status
// or an empty qr_string; both are reported as a QRResponse without a
// pairing string rather than an error.
func (c *Client) QR(ctx context.Context) (*QRResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/qr", nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qr request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qr response read failed: %w", err)
	}

	var out QRResponse
	if jsonErr := json.Unmarshal(body, &out); jsonErr != nil {
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, fmt.Errorf("malformed qr response: %w", jsonErr)
		}
		// Non-2xx with a non-JSON body: no QR available.
		return &QRResponse{Message: strings.TrimSpace(string(body))}, nil
	}
	return &out, nil
}

// Reauth asks the bridge to drop its session and issue a fresh pairing string.
func (c *Client) Reauth(ctx context.Context) (*SendResponse, error) {
	var out SendResponse
	if err := c.postJSON(ctx, "/api/reauth", nil, c.statusTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendText sends a text message through the bridge.
func (c *Client) SendText(ctx context.Context, recipient, message string) (*SendResponse, error) {
	payload := map[string]string{"recipient": recipient, "message": message}
	var out SendResponse
	if err := c.postJSON(ctx, "/api/send", payload, c.sendTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMedia uploads a local file to the bridge as a media message.
func (c *Client) SendMedia(ctx context.Context, recipient, mediaPath string) (*SendResponse, error) {
	return c.sendMultipart(ctx, "/api/send-media", "media", recipient, mediaPath)
}

// SendAudio uploads a local file to the bridge as a voice message.
func (c *Client) SendAudio(ctx context.Context, recipient, audioPath string) (*SendResponse, error) {
	return c.sendMultipart(ctx, "/api/send-audio", "audio", recipient, audioPath)
}

// DownloadMedia asks the bridge to fetch a message's media to local disk
// and returns the path the bridge wrote it to.
func (c *Client) DownloadMedia(ctx context.Context, messageID, chatJID string) (*DownloadResponse, error) {
	payload := map[string]string{"message_id": messageID, "chat_jid": chatJID}
	var out DownloadResponse
	if err := c.postJSON(ctx, "/api/download-media", payload, c.mediaTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.authUser != "" && c.authPass != "" {
		req.SetBasicAuth(c.authUser, c.authPass)
	}
}

func (c *Client) getJSON(ctx context.Context, path string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(path, resp, out)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	return decodeResponse(path, resp, out)
}

func (c *Client) sendMultipart(ctx context.Context, path, field, recipient, filePath string) (*SendResponse, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("recipient", recipient); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile(field, filepath.Base(filePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.mediaTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var out SendResponse
	if err := decodeResponse(path, resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeResponse(path string, resp *http.Response, out interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("response from %s read failed: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned HTTP %d: %s", path, resp.StatusCode, errorDetail(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed response from %s: %w", path, err)
	}
	return nil
}

// errorDetail extracts an error or message field from a JSON error body,
// falling back to the raw text.
func errorDetail(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return detail
}
