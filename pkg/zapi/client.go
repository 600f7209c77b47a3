package zapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/comanda-backend/pkg/errors"
	phonenum "github.com/angelmondragon/comanda-backend/pkg/phone"
)

const (
	defaultBaseURL             = "https://api.z-api.io"
	responseBodyReadLimit int64 = 1024
	clientTokenHeader           = "Client-Token"
)

var (
	errInstanceRequired = errors.New("z-api instance id is required")
	errTokenRequired    = errors.New("z-api token is required")
)

// Client talks to the Z-API WhatsApp gateway for one instance.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	instanceID  string
	token       string
	clientToken string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithClientToken sets the account security token sent on every request.
func WithClientToken(token string) Option {
	return func(c *Client) {
		c.clientToken = strings.TrimSpace(token)
	}
}

// NewClient builds a client for the given instance credentials.
func NewClient(instanceID, token string, opts ...Option) (*Client, error) {
	instanceID = strings.TrimSpace(instanceID)
	token = strings.TrimSpace(token)
	if instanceID == "" {
		return nil, errInstanceRequired
	}
	if token == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		instanceID: instanceID,
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ConnectionState is the gateway's view of the paired phone.
type ConnectionState struct {
	Connected           bool   `json:"connected"`
	SmartphoneConnected bool   `json:"smartphone_connected"`
	Error               string `json:"error,omitempty"`
}

// SendText delivers a plain text message and returns the provider message id.
func (c *Client) SendText(ctx context.Context, phone, text string) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeUpstream, "messaging provider not configured")
	}
	phone = phonenum.Digits(phone)
	if phone == "" {
		return "", pkgerrors.New(pkgerrors.CodeInvalidInput, "recipient phone is required")
	}
	if strings.TrimSpace(text) == "" {
		return "", pkgerrors.New(pkgerrors.CodeInvalidInput, "message text is required")
	}

	payload, err := json.Marshal(map[string]string{"phone": phone, "message": text})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "marshal send-text request")
	}

	var apiResp struct {
		ZaapID    string `json:"zaapId"`
		MessageID string `json:"messageId"`
		ID        string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "send-text", bytes.NewReader(payload), &apiResp); err != nil {
		return "", err
	}

	if apiResp.MessageID != "" {
		return apiResp.MessageID, nil
	}
	return apiResp.ID, nil
}

// Status reports whether the instance is paired and online.
func (c *Client) Status(ctx context.Context) (ConnectionState, error) {
	if c == nil {
		return ConnectionState{}, pkgerrors.New(pkgerrors.CodeUpstream, "messaging provider not configured")
	}
	var apiResp struct {
		Connected           bool   `json:"connected"`
		SmartphoneConnected bool   `json:"smartphoneConnected"`
		Error               string `json:"error"`
	}
	if err := c.do(ctx, http.MethodGet, "status", nil, &apiResp); err != nil {
		return ConnectionState{}, err
	}
	return ConnectionState{
		Connected:           apiResp.Connected,
		SmartphoneConnected: apiResp.SmartphoneConnected,
		Error:               apiResp.Error,
	}, nil
}

// Restart asks the gateway to restart the instance session.
func (c *Client) Restart(ctx context.Context) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeUpstream, "messaging provider not configured")
	}
	return c.do(ctx, http.MethodGet, "restart", nil, nil)
}

func (c *Client) do(ctx context.Context, method, action string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(action), body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "build "+action+" request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.clientToken != "" {
		req.Header.Set(clientTokenHeader, c.clientToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "execute "+action+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), action+" request failed")
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode "+action+" response")
	}
	return nil
}

func (c *Client) buildURL(action string) string {
	return fmt.Sprintf("%s/instances/%s/token/%s/%s",
		strings.TrimRight(c.baseURL, "/"),
		url.PathEscape(c.instanceID),
		url.PathEscape(c.token),
		strings.TrimLeft(action, "/"),
	)
}
