package api

import (
	"github.com/wamcp/whatsapp-mcp-gateway/pkg/mcp"
)

// Tool name constants
const (
	// Connection (4)
	ToolGetStatus         = "get_status"
	ToolGetQR             = "get_qr"
	ToolWaitForConnection = "wait_for_connection"
	ToolReauthenticate    = "reauthenticate"

	// Messaging (4)
	ToolSendMessage   = "send_message"
	ToolSendFile      = "send_file"
	ToolSendAudio     = "send_audio_message"
	ToolDownloadMedia = "download_media"

	// Data (8)
	ToolSearchContacts         = "search_contacts"
	ToolListMessages           = "list_messages"
	ToolListChats              = "list_chats"
	ToolGetChat                = "get_chat"
	ToolGetDirectChatByContact = "get_direct_chat_by_contact"
	ToolGetContactChats        = "get_contact_chats"
	ToolGetLastInteraction     = "get_last_interaction"
	ToolGetMessageContext      = "get_message_context"
)

// GetAllTools returns all 16 tool definitions.
func GetAllTools() []mcp.Tool {
	return []mcp.Tool{
		// ============ CONNECTION (4) ============
		{
			Name:        ToolGetStatus,
			Description: "Get the WhatsApp connection status. Returns a QR code when authentication is pending.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"format": formatProp(),
				},
			},
		},
		{
			Name:        ToolGetQR,
			Description: "Get the current WhatsApp pairing QR code with ASCII and PNG renderings",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"format": formatProp(),
				},
			},
		},
		{
			Name:        ToolWaitForConnection,
			Description: "Wait for WhatsApp to connect, polling until the timeout elapses. Timing out is a normal outcome.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"timeout": propInt("Maximum seconds to wait (default 60)"),
					"format":  formatProp(),
				},
			},
		},
		{
			Name:        ToolReauthenticate,
			Description: "Clear the WhatsApp session and trigger a fresh QR code",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"format": formatProp(),
				},
			},
		},

		// ============ MESSAGING (4) ============
		{
			Name:        ToolSendMessage,
			Description: "Send a text message to a WhatsApp contact or group",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"recipient": prop("string", "Phone number (e.g., +1234567890) or JID of the recipient"),
					"message":   prop("string", "Text message to send"),
					"format":    formatProp(),
				},
				"required": []string{"recipient", "message"},
			},
		},
		{
			Name:        ToolSendFile,
			Description: "Send a file (image, video, document) to a WhatsApp contact or group",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"recipient":  prop("string", "Phone number or JID of the recipient"),
					"media_path": prop("string", "Absolute path of the file to send"),
					"format":     formatProp(),
				},
				"required": []string{"recipient", "media_path"},
			},
		},
		{
			Name:        ToolSendAudio,
			Description: "Send an audio file as a WhatsApp voice message",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"recipient":  prop("string", "Phone number or JID of the recipient"),
					"media_path": prop("string", "Absolute path of the audio file to send"),
					"format":     formatProp(),
				},
				"required": []string{"recipient", "media_path"},
			},
		},
		{
			Name:        ToolDownloadMedia,
			Description: "Download media from a WhatsApp message and return the local file path",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"message_id": prop("string", "ID of the message carrying the media"),
					"chat_jid":   prop("string", "JID of the chat containing the message"),
					"format":     formatProp(),
				},
				"required": []string{"message_id", "chat_jid"},
			},
		},

		// ============ DATA (8) ============
		{
			Name:        ToolSearchContacts,
			Description: "Search WhatsApp contacts by name or phone number",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query":  prop("string", "Name or phone number fragment to search for"),
					"format": formatProp(),
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        ToolListMessages,
			Description: "List WhatsApp messages matching the given filters, newest first",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"after":               prop("string", "Only messages after this ISO-8601 timestamp"),
					"before":              prop("string", "Only messages before this ISO-8601 timestamp"),
					"sender_phone_number": prop("string", "Only messages from this sender"),
					"chat_jid":            prop("string", "Only messages in this chat"),
					"query":               prop("string", "Only messages whose content contains this text"),
					"limit":               propInt("Maximum messages to return (default 20)"),
					"page":                propInt("Page number for pagination (default 0)"),
					"format":              formatProp(),
				},
			},
		},
		{
			Name:        ToolListChats,
			Description: "List WhatsApp chats matching the given filters",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query":                prop("string", "Name or JID fragment to filter by"),
					"limit":                propInt("Maximum chats to return (default 20)"),
					"page":                 propInt("Page number for pagination (default 0)"),
					"include_last_message": propBool("Include each chat's latest message (default true)"),
					"sort_by":              prop("string", "Sort order: last_active (default) or name"),
					"format":               formatProp(),
				},
			},
		},
		{
			Name:        ToolGetChat,
			Description: "Get WhatsApp chat metadata by JID",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"chat_jid":             prop("string", "JID of the chat"),
					"include_last_message": propBool("Include the chat's latest message (default true)"),
					"format":               formatProp(),
				},
				"required": []string{"chat_jid"},
			},
		},
		{
			Name:        ToolGetDirectChatByContact,
			Description: "Get the direct chat with a contact by phone number",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sender_phone_number": prop("string", "Phone number of the contact"),
					"format":              formatProp(),
				},
				"required": []string{"sender_phone_number"},
			},
		},
		{
			Name:        ToolGetContactChats,
			Description: "List all WhatsApp chats involving the given contact",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"jid":    prop("string", "JID of the contact"),
					"limit":  propInt("Maximum chats to return (default 20)"),
					"page":   propInt("Page number for pagination (default 0)"),
					"format": formatProp(),
				},
				"required": []string{"jid"},
			},
		},
		{
			Name:        ToolGetLastInteraction,
			Description: "Get the most recent WhatsApp message involving the given contact",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"jid":    prop("string", "JID of the contact"),
					"format": formatProp(),
				},
				"required": []string{"jid"},
			},
		},
		{
			Name:        ToolGetMessageContext,
			Description: "Get the messages surrounding a specific WhatsApp message",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"message_id": prop("string", "ID of the target message"),
					"before":     propInt("Messages to include before the target (default 5)"),
					"after":      propInt("Messages to include after the target (default 5)"),
					"format":     formatProp(),
				},
				"required": []string{"message_id"},
			},
		},
	}
}

// Schema property helpers

func prop(typeName, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typeName,
		"description": description,
	}
}

func propInt(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

func propBool(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": description,
	}
}

func formatProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Output format: 'json' (default) or 'markdown'",
		"enum":        []string{"json", "markdown"},
	}
}
