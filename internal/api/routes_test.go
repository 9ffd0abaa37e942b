package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"marketmaker/internal/supervisor"
	"marketmaker/internal/websocket"
)

type fakeStatusProvider struct {
	status supervisor.Status
}

func (f fakeStatusProvider) Status() supervisor.Status { return f.status }
func (f fakeStatusProvider) Hub() *websocket.Hub        { return websocket.NewHub(zap.NewNop()) }

func TestHealthzIsUnauthenticated(t *testing.T) {
	router := SetupRoutes(fakeStatusProvider{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMetricsIsUnauthenticated(t *testing.T) {
	router := SetupRoutes(fakeStatusProvider{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestStatusRejectsMissingToken(t *testing.T) {
	router := SetupRoutes(fakeStatusProvider{})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d (no token hash configured)", rec.Code, http.StatusForbidden)
	}
}

func TestWSStreamRejectsMissingToken(t *testing.T) {
	router := SetupRoutes(fakeStatusProvider{})

	req := httptest.NewRequest(http.MethodGet, "/ws/stream", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d (no token hash configured)", rec.Code, http.StatusForbidden)
	}
}
