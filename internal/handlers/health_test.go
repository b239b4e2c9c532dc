package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestHealthHandlerHandle(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		database Pinger
		status   int
		want     string
	}{
		{name: "memory", method: http.MethodGet, status: http.StatusOK, want: "memory"},
		{name: "database up", method: http.MethodGet, database: pingStub{}, status: http.StatusOK, want: "ok"},
		{name: "database down", method: http.MethodGet, database: pingStub{err: errors.New("down")}, status: http.StatusServiceUnavailable, want: "unreachable"},
		{name: "wrong method", method: http.MethodPost, status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthHandler{Database: tt.database}.Handle(rec, httptest.NewRequest(tt.method, "/healthz", nil))

			if rec.Code != tt.status {
				t.Fatalf("expected status %d got %d", tt.status, rec.Code)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/json" {
				t.Fatalf("expected json content type got %s", got)
			}
			if tt.want == "" {
				return
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["database"] != tt.want {
				t.Fatalf("expected database %q got %q", tt.want, body["database"])
			}
		})
	}
}
