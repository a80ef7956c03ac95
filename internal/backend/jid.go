package backend

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// NormalizeRecipient turns a phone number or JID string into a canonical
// JID. Phone numbers may carry a leading plus; full JIDs pass through
// validation unchanged.
func NormalizeRecipient(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", fmt.Errorf("empty recipient")
	}

	if strings.ContainsRune(recipient, '@') {
		jid, err := types.ParseJID(recipient)
		if err != nil {
			return "", fmt.Errorf("invalid JID %q: %w", recipient, err)
		}
		return jid.String(), nil
	}

	phone := strings.TrimPrefix(recipient, "+")
	if phone == "" {
		return "", fmt.Errorf("invalid recipient %q", recipient)
	}
	return types.NewJID(phone, types.DefaultUserServer).String(), nil
}

// IsGroupJID reports whether jid addresses a group chat.
func IsGroupJID(jid string) bool {
	parsed, err := types.ParseJID(jid)
	if err != nil {
		return false
	}
	return parsed.Server == types.GroupServer
}
