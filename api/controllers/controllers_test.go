package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/comanda-backend/api/middleware"
	"github.com/angelmondragon/comanda-backend/pkg/config"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/angelmondragon/comanda-backend/pkg/zapi"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubProvider struct {
	state      zapi.ConnectionState
	err        error
	restartErr error
	restarts   int
}

func (s *stubProvider) Status(context.Context) (zapi.ConnectionState, error) {
	return s.state, s.err
}

func (s *stubProvider) Restart(context.Context) error {
	s.restarts++
	return s.restartErr
}

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "dev"}}
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(testConfig()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get(envHeader) != "dev" {
		t.Fatalf("expected env header")
	}
}

func TestHealthReady(t *testing.T) {
	ok := HealthReady(testConfig(), nil, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}})
	resp := httptest.NewRecorder()
	ok.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	down := HealthReady(testConfig(), nil, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}})
	resp = httptest.NewRecorder()
	down.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestPrivatePingEchoesIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	ctx := middleware.WithUserID(req.Context(), "u-1")
	ctx = middleware.WithRole(ctx, enums.StaffRoleAttendant)
	resp := httptest.NewRecorder()
	PrivatePing().ServeHTTP(resp, req.WithContext(ctx))

	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["user_id"] != "u-1" || envelope.Data["role"] != "atendente" {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}

func TestMessagingStatus(t *testing.T) {
	provider := &stubProvider{state: zapi.ConnectionState{Connected: true, SmartphoneConnected: true}}
	resp := httptest.NewRecorder()
	MessagingStatus(provider, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data zapi.ConnectionState `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Connected {
		t.Fatalf("expected connected state")
	}

	resp = httptest.NewRecorder()
	MessagingStatus(&stubProvider{err: errors.New("timeout")}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestMessagingReconnect(t *testing.T) {
	provider := &stubProvider{}
	resp := httptest.NewRecorder()
	MessagingReconnect(provider, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", resp.Code)
	}
	if provider.restarts != 1 {
		t.Fatalf("expected one restart, got %d", provider.restarts)
	}

	resp = httptest.NewRecorder()
	MessagingReconnect(nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when provider is missing, got %d", resp.Code)
	}
}
