package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wamcp/whatsapp-mcp-gateway/internal/backend"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/format"
	"github.com/wamcp/whatsapp-mcp-gateway/internal/store"
	"github.com/wamcp/whatsapp-mcp-gateway/pkg/mcp"
)

// defaultWaitTimeout bounds wait_for_connection when no timeout is given.
const defaultWaitTimeout = 60 * time.Second

// Handler implements the MCP ToolHandler interface over a backend.
type Handler struct {
	backend   backend.Backend
	formatter *format.Formatter

	// defaultMode applies when a call carries no format argument.
	defaultMode format.Mode
}

// NewHandler creates a new tool handler.
func NewHandler(b backend.Backend, formatter *format.Formatter, defaultMode format.Mode) *Handler {
	return &Handler{
		backend:     b,
		formatter:   formatter,
		defaultMode: defaultMode,
	}
}

// GetTools returns all available tool definitions.
func (h *Handler) GetTools() []mcp.Tool {
	return GetAllTools()
}

// HandleTool handles a tool invocation and returns the result.
func (h *Handler) HandleTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	switch name {
	// Connection
	case ToolGetStatus:
		return h.handleGetStatus(ctx, args)
	case ToolGetQR:
		return h.handleGetQR(ctx, args)
	case ToolWaitForConnection:
		return h.handleWaitForConnection(ctx, args)
	case ToolReauthenticate:
		return h.handleReauthenticate(ctx, args)

	// Messaging
	case ToolSendMessage:
		return h.handleSendMessage(ctx, args)
	case ToolSendFile:
		return h.handleSendFile(ctx, args)
	case ToolSendAudio:
		return h.handleSendAudio(ctx, args)
	case ToolDownloadMedia:
		return h.handleDownloadMedia(ctx, args)

	// Data
	case ToolSearchContacts:
		return h.handleSearchContacts(ctx, args)
	case ToolListMessages:
		return h.handleListMessages(ctx, args)
	case ToolListChats:
		return h.handleListChats(ctx, args)
	case ToolGetChat:
		return h.handleGetChat(ctx, args)
	case ToolGetDirectChatByContact:
		return h.handleGetDirectChatByContact(ctx, args)
	case ToolGetContactChats:
		return h.handleGetContactChats(ctx, args)
	case ToolGetLastInteraction:
		return h.handleGetLastInteraction(ctx, args)
	case ToolGetMessageContext:
		return h.handleGetMessageContext(ctx, args)

	default:
		return h.errorResult(NewInvalidInputError(fmt.Sprintf("Unknown tool: %s", name)))
	}
}

// Connection handlers

func (h *Handler) handleGetStatus(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	status := h.backend.Status(ctx)
	return h.successResult(status, h.mode(args))
}

func (h *Handler) handleGetQR(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	qr := h.backend.QR(ctx)

	result, err := h.successResult(qr, h.mode(args))
	if err != nil {
		return result, err
	}
	// Attach the PNG as a proper image block so clients can show it.
	if b64, ok := strings.CutPrefix(qr.QRImage, "data:image/png;base64,"); ok && b64 != "" {
		result.Content = append(result.Content, mcp.ImageContent("image/png", b64))
	}
	return result, nil
}

func (h *Handler) handleWaitForConnection(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	timeout := defaultWaitTimeout
	if secs := getInt(args, "timeout", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	res := h.backend.WaitForConnection(ctx, timeout)
	return h.successResult(res, h.mode(args))
}

func (h *Handler) handleReauthenticate(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	res, err := h.backend.Reauthenticate(ctx)
	if err != nil {
		return h.errorResult(h.wrapError(err))
	}
	return h.successResult(res, h.mode(args))
}

// Messaging handlers

func (h *Handler) handleSendMessage(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	recipient := getString(args, "recipient")
	message := getString(args, "message")
	if recipient == "" || message == "" {
		return h.errorResult(NewInvalidInputError("recipient and message are required"))
	}

	res, err := h.backend.SendMessage(ctx, recipient, message)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			return h.errorResult(NewUnavailableError())
		}
		return h.errorResult(NewMessageFailedError(err))
	}
	return h.successResult(res, h.mode(args))
}

func (h *Handler) handleSendFile(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	recipient := getString(args, "recipient")
	mediaPath := getString(args, "media_path")
	if recipient == "" || mediaPath == "" {
		return h.errorResult(NewInvalidInputError("recipient and media_path are required"))
	}

	res, err := h.backend.SendFile(ctx, recipient, mediaPath)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			return h.errorResult(NewUnavailableError())
		}
		return h.errorResult(NewMediaFailedError(err))
	}
	return h.successResult(res, h.mode(args))
}

func (h *Handler) handleSendAudio(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	recipient := getString(args, "recipient")
	mediaPath := getString(args, "media_path")
	if recipient == "" || mediaPath == "" {
		return h.errorResult(NewInvalidInputError("recipient and media_path are required"))
	}

	res, err := h.backend.SendAudio(ctx, recipient, mediaPath)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			return h.errorResult(NewUnavailableError())
		}
		return h.errorResult(NewMediaFailedError(err))
	}
	return h.successResult(res, h.mode(args))
}

func (h *Handler) handleDownloadMedia(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	messageID := getString(args, "message_id")
	chatJID := getString(args, "chat_jid")
	if messageID == "" || chatJID == "" {
		return h.errorResult(NewInvalidInputError("message_id and chat_jid are required"))
	}

	res, err := h.backend.DownloadMedia(ctx, messageID, chatJID)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			return h.errorResult(NewUnavailableError())
		}
		return h.errorResult(NewMediaFailedError(err))
	}
	return h.successResult(res, h.mode(args))
}

// Data handlers

func (h *Handler) handleSearchContacts(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	query := getString(args, "query")
	if query == "" {
		return h.errorResult(NewInvalidInputError("query is required"))
	}

	contacts, err := h.backend.SearchContacts(ctx, query)
	if err != nil {
		return h.errorResult(h.wrapError(err))
	}
	if contacts == nil {
		contacts = []store.Contact{}
	}
	return h.successResult(contacts, h.mode(args))
}

func (h *Handler) handleListMessages(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	filter := store.MessageFilter{
		Sender:  getString(args, "sender_phone_number"),
		ChatJID: getString(args, "chat_jid"),
		Query:   getString(args, "query"),
		Limit:   getInt(args, "limit", 20),
		Page:    getInt(args, "page", 0),
	}

	var err error
	if filter.After, err = parseTimeArg(args, "after"); err != nil {
		return h.errorResult(NewInvalidInputError(err.Error()))
	}
	if filter.Before, err = parseTimeArg(args, "before"); err != nil {
		return h.errorResult(NewInvalidInputError(err.Error()))
	}

	listing, err := h.backend.ListMessages(ctx, filter)
	if err != nil {
		return h.errorResult(h.wrapError(err))
	}
	return h.successResult(listing, h.mode(args))
}

func (h *Handler) handleListChats(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	chats, err := h.backend.ListChats(ctx, store.ChatFilter{
		Query:              getString(args, "query"),
		Limit:              getInt(args, "limit", 20),
		Page:               getInt(args, "page", 0),
		IncludeLastMessage: getBool(args, "include_last_message", true),
		SortBy:             getString(args, "sort_by"),
	})
	if err != nil {
		return h.errorResult(h.wrapError(err))
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	return h.successResult(chats, h.mode(args))
}

func (h *Handler) handleGetChat(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	chatJID := getString(args, "chat_jid")
	if chatJID == "" {
		return h.errorResult(NewInvalidInputError("chat_jid is required"))
	}

	chat, err := h.backend.GetChat(ctx, chatJID, getBool(args, "include_last_message", true))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.errorResult(NewNotFoundError(chatJID))
		}
		return h.errorResult(h.wrapError(err))
	}
	return h.successResult(chat, h.mode(args))
}

func (h *Handler) handleGetDirectChatByContact(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	phone := getString(args, "sender_phone_number")
	if phone == "" {
		return h.errorResult(NewInvalidInputError("sender_phone_number is required"))
	}

	chat, err := h.backend.GetDirectChatByContact(ctx, phone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.errorResult(NewNotFoundError(phone))
		}
		return h.errorResult(h.wrapError(err))
	}
	return h.successResult(chat, h.mode(args))
}

func (h *Handler) handleGetContactChats(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	jid := getString(args, "jid")
	if jid == "" {
		return h.errorResult(NewInvalidInputError("jid is required"))
	}

	chats, err := h.backend.GetContactChats(ctx, jid, getInt(args, "limit", 20), getInt(args, "page", 0))
	if err != nil {
		return h.errorResult(h.wrapError(err))
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	return h.successResult(chats, h.mode(args))
}

func (h *Handler) handleGetLastInteraction(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	jid := getString(args, "jid")
	if jid == "" {
		return h.errorResult(NewInvalidInputError("jid is required"))
	}

	last, err := h.backend.GetLastInteraction(ctx, jid)
	if err != nil {
		return h.errorResult(h.wrapError(err))
	}
	return h.successResult(last, h.mode(args))
}

func (h *Handler) handleGetMessageContext(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	messageID := getString(args, "message_id")
	if messageID == "" {
		return h.errorResult(NewInvalidInputError("message_id is required"))
	}

	mctx, err := h.backend.GetMessageContext(ctx, messageID, getInt(args, "before", 5), getInt(args, "after", 5))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.errorResult(NewNotFoundError(messageID))
		}
		return h.errorResult(h.wrapError(err))
	}
	return h.successResult(mctx, h.mode(args))
}

// Resources

const (
	resourceStatusURI = "whatsapp://status"
	resourceQRURI     = "whatsapp://qr"
)

// GetResources lists the live connection resources.
func (h *Handler) GetResources() []mcp.Resource {
	return []mcp.Resource{
		{
			URI:         resourceStatusURI,
			Name:        "Connection status",
			Description: "Current WhatsApp connection status",
			MimeType:    "application/json",
		},
		{
			URI:         resourceQRURI,
			Name:        "Pairing QR code",
			Description: "Current WhatsApp pairing QR code, when one is pending",
			MimeType:    "application/json",
		},
	}
}

// ReadResource serves the connection resources from the backend.
func (h *Handler) ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContent, error) {
	switch uri {
	case resourceStatusURI:
		text, err := h.formatter.Format(h.backend.Status(ctx), format.ModeJSON)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContent{{URI: uri, MimeType: "application/json", Text: text}}, nil
	case resourceQRURI:
		text, err := h.formatter.Format(h.backend.QR(ctx), format.ModeJSON)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContent{{URI: uri, MimeType: "application/json", Text: text}}, nil
	default:
		return nil, fmt.Errorf("unknown resource: %s", uri)
	}
}

// Helper methods

// mode resolves the output format for one call.
func (h *Handler) mode(args map[string]interface{}) format.Mode {
	if v := getString(args, "format"); v != "" {
		return format.ParseMode(v)
	}
	return h.defaultMode
}

func (h *Handler) successResult(data interface{}, mode format.Mode) (*mcp.CallToolResult, error) {
	text, err := h.formatter.Format(data, mode)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{mcp.TextContent(text)},
	}, nil
}

func (h *Handler) errorResult(err *MCPError) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{mcp.TextContent(err.JSON())},
		IsError: true,
	}, nil
}

// wrapError maps backend errors to MCP error results.
func (h *Handler) wrapError(err error) *MCPError {
	if errors.Is(err, backend.ErrUnavailable) {
		return NewUnavailableError()
	}
	return NewInternalError(err)
}

// parseTimeArg parses an optional ISO-8601 argument. Bare dates are
// accepted alongside full timestamps.
func parseTimeArg(args map[string]interface{}, key string) (time.Time, error) {
	raw := getString(args, key)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid %s timestamp: %s", key, raw)
}

func getString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func getInt(args map[string]interface{}, key string, defaultVal int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	if v, ok := args[key].(int); ok {
		return v
	}
	return defaultVal
}

func getBool(args map[string]interface{}, key string, defaultVal bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return defaultVal
}
