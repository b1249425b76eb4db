package prediction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExternalOracle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"wait_minutes": 42, "confidence": 0.8}`))
	}))
	defer server.Close()

	oracle := NewExternalOracle(server.URL, time.Second)
	p, err := oracle.PredictWaitTime(context.Background(), Features{CurrentQueueLength: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.WaitMinutes != 42 || p.Confidence != 0.8 {
		t.Errorf("unexpected prediction: %+v", p)
	}
}

func TestExternalOracleErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	oracle := NewExternalOracle(server.URL, time.Second)
	if _, err := oracle.PredictWaitTime(context.Background(), Features{}); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestExternalOracleTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"wait_minutes": 1, "confidence": 0.9}`))
	}))
	defer server.Close()

	oracle := NewExternalOracle(server.URL, 20*time.Millisecond)
	if _, err := oracle.PredictWaitTime(context.Background(), Features{}); err == nil {
		t.Error("expected timeout error from slow oracle")
	}
}

func TestExternalOracleRejectsNegativeWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"wait_minutes": -5, "confidence": 0.9}`))
	}))
	defer server.Close()

	oracle := NewExternalOracle(server.URL, time.Second)
	if _, err := oracle.PredictWaitTime(context.Background(), Features{}); err == nil {
		t.Error("expected error for negative wait time")
	}
}
