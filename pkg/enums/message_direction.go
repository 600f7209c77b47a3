package enums

import (
	"fmt"
	"strings"
)

// MessageDirection distinguishes customer messages from replies.
type MessageDirection string

const (
	MessageDirectionInbound  MessageDirection = "inbound"
	MessageDirectionOutbound MessageDirection = "outbound"
)

// The bot integration sends short or Portuguese labels.
var messageDirectionAliases = map[string]MessageDirection{
	"inbound":  MessageDirectionInbound,
	"in":       MessageDirectionInbound,
	"entrada":  MessageDirectionInbound,
	"recebida": MessageDirectionInbound,
	"outbound": MessageDirectionOutbound,
	"out":      MessageDirectionOutbound,
	"saida":    MessageDirectionOutbound,
	"enviada":  MessageDirectionOutbound,
	"bot":      MessageDirectionOutbound,
}

// String implements fmt.Stringer.
func (d MessageDirection) String() string {
	return string(d)
}

// IsValid reports whether the value is a canonical MessageDirection.
func (d MessageDirection) IsValid() bool {
	return d == MessageDirectionInbound || d == MessageDirectionOutbound
}

// ParseMessageDirection normalizes wire labels into a MessageDirection.
func ParseMessageDirection(value string) (MessageDirection, error) {
	if dir, ok := messageDirectionAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return dir, nil
	}
	return "", fmt.Errorf("invalid message direction %q", value)
}
