package conversations

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/comanda-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
)

// InboundMessage is a webhook delivery after both accepted shapes have been
// normalized.
type InboundMessage struct {
	Phone           string
	CustomerName    *string
	Status          *string
	LastInteraction time.Time
	Direction       enums.MessageDirection
	Content         string
	Timestamp       time.Time
	RawTimestamp    string
}

type conversaPayload struct {
	Phone           flexString  `json:"numero_cliente"`
	CustomerName    *flexString `json:"nome_cliente"`
	Status          *flexString `json:"status"`
	LastInteraction flexString  `json:"ultima_interacao"`
}

type mensagemPayload struct {
	Kind      flexString `json:"tipo"`
	Content   flexString `json:"conteudo"`
	Timestamp flexString `json:"timestamp"`
}

type webhookShape struct {
	Conversa *conversaPayload `json:"conversa"`
	Mensagem *mensagemPayload `json:"mensagem"`
}

type webhookEnvelope struct {
	webhookShape
	Body *webhookShape `json:"body"`
}

// flexString accepts JSON strings and numbers. Integrations send phone
// numbers and epoch timestamps either way.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f *flexString) ptr() *string {
	if f == nil {
		return nil
	}
	v := strings.TrimSpace(string(*f))
	if v == "" {
		return nil
	}
	return &v
}

// ParseWebhookPayload accepts {conversa, mensagem} at the top level or
// wrapped under body. Missing phone or content is BAD_REQUEST.
func ParseWebhookPayload(raw []byte, now time.Time) (*InboundMessage, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "payload is not valid json")
	}

	shape := env.webhookShape
	if shape.Conversa == nil || shape.Mensagem == nil {
		if env.Body == nil || env.Body.Conversa == nil || env.Body.Mensagem == nil {
			return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "unrecognized payload shape")
		}
		shape = *env.Body
	}

	phone := strings.TrimSpace(string(shape.Conversa.Phone))
	content := strings.TrimSpace(string(shape.Mensagem.Content))
	missing := []string{}
	if phone == "" {
		missing = append(missing, "conversa.numero_cliente")
	}
	if content == "" {
		missing = append(missing, "mensagem.conteudo")
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "payload is missing required fields").
			WithDetails(map[string]any{"missing": missing})
	}

	direction := enums.MessageDirectionInbound
	if kind := strings.TrimSpace(string(shape.Mensagem.Kind)); kind != "" {
		parsed, err := enums.ParseMessageDirection(kind)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "unknown message type")
		}
		direction = parsed
	}

	rawTimestamp := strings.TrimSpace(string(shape.Mensagem.Timestamp))
	timestamp := parseTimestamp(rawTimestamp, now)
	lastInteraction := parseTimestamp(strings.TrimSpace(string(shape.Conversa.LastInteraction)), timestamp)

	return &InboundMessage{
		Phone:           phone,
		CustomerName:    shape.Conversa.CustomerName.ptr(),
		Status:          shape.Conversa.Status.ptr(),
		LastInteraction: lastInteraction,
		Direction:       direction,
		Content:         content,
		Timestamp:       timestamp,
		RawTimestamp:    rawTimestamp,
	}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
}

// parseTimestamp reads RFC 3339, common SQL layouts, or unix epochs in
// seconds or milliseconds. Anything else yields fallback.
func parseTimestamp(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback.UTC()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	if n, err := strconv.ParseFloat(value, 64); err == nil && n > 0 && !math.IsInf(n, 0) {
		if n >= 1e12 {
			return time.UnixMilli(int64(n)).UTC()
		}
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return fallback.UTC()
}
