package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedRequest(t *testing.T, header, value string) *httptest.ResponseRecorder {
	t.Helper()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := APIKeyAuth("secret-key")(next)

	req := httptest.NewRequest("GET", "/v1/projects", nil)
	if header != "" {
		req.Header.Set(header, value)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAPIKeyAuthAccepts(t *testing.T) {
	if rec := authedRequest(t, "X-API-Key", "secret-key"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for valid X-API-Key, got %d", rec.Code)
	}
	if rec := authedRequest(t, "Authorization", "Bearer secret-key"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for valid bearer token, got %d", rec.Code)
	}
}

func TestAPIKeyAuthRejects(t *testing.T) {
	if rec := authedRequest(t, "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for missing key, got %d", rec.Code)
	}
	if rec := authedRequest(t, "X-API-Key", "wrong"); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for invalid key, got %d", rec.Code)
	}
	if rec := authedRequest(t, "Authorization", "Bearer wrong"); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for invalid bearer token, got %d", rec.Code)
	}
}
