package enums

import "fmt"

// ConversationMode records who answers a chat thread.
type ConversationMode string

const (
	ConversationModeBot   ConversationMode = "bot"
	ConversationModeHuman ConversationMode = "humano"
)

var validConversationModes = []ConversationMode{
	ConversationModeBot,
	ConversationModeHuman,
}

// String implements fmt.Stringer.
func (m ConversationMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ConversationMode.
func (m ConversationMode) IsValid() bool {
	for _, candidate := range validConversationModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseConversationMode converts raw input into a ConversationMode.
func ParseConversationMode(value string) (ConversationMode, error) {
	for _, candidate := range validConversationModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversation mode %q", value)
}
