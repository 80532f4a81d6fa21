package promstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestClient_Catalog tests metric-name catalog retrieval.
func TestClient_Catalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/label/__name__/values" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %q", r.Method)
		}
		w.Write([]byte(`{"status":"success","data":["cpu_user","mem_free"]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	names, err := c.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog() failed: %v", err)
	}
	if len(names) != 2 || names[0] != "cpu_user" || names[1] != "mem_free" {
		t.Errorf("Catalog() = %v", names)
	}
}

// TestClient_Catalog_ErrorEnvelope tests a 200 response whose envelope
// reports failure.
func TestClient_Catalog_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","errorType":"internal","error":"boom"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Catalog(context.Background())
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

// TestClient_DeleteSeries verifies the admin API call shape: POST with
// match[], start, and end in epoch seconds.
func TestClient_DeleteSeries(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/admin/tsdb/delete_series" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %q", r.Method)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"match[]": q.Get("match[]"),
			"start":   q.Get("start"),
			"end":     q.Get("end"),
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	err := c.DeleteSeries(context.Background(), `{__name__="cpu_user"}`, 0, 1_700_000_000)
	if err != nil {
		t.Fatalf("DeleteSeries() failed: %v", err)
	}

	if gotQuery["match[]"] != `{__name__="cpu_user"}` {
		t.Errorf("match[] = %q", gotQuery["match[]"])
	}
	if gotQuery["start"] != "0" || gotQuery["end"] != "1700000000" {
		t.Errorf("range = [%s, %s]", gotQuery["start"], gotQuery["end"])
	}
}

// TestClient_CleanTombstones tests the compaction trigger.
func TestClient_CleanTombstones(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/admin/tsdb/clean_tombstones" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.CleanTombstones(context.Background()); err != nil {
		t.Fatalf("CleanTombstones() failed: %v", err)
	}
	if !called {
		t.Error("clean_tombstones endpoint not called")
	}
}

// TestClient_StatusClassification tests the non-2xx error classes the
// engine's outcome switch depends on.
func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status         int
		isNotFound     bool
		isClientReject bool
	}{
		{http.StatusNotFound, true, false},
		{http.StatusBadRequest, false, true},
		{http.StatusUnprocessableEntity, false, true},
		{http.StatusInternalServerError, false, false},
		{http.StatusBadGateway, false, false},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		}))

		c := NewClient(Config{BaseURL: srv.URL})
		err := c.DeleteSeries(context.Background(), `{__name__="x"}`, 0, 1)
		srv.Close()

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("status %d: expected *StatusError, got %v", tt.status, err)
		}
		if statusErr.StatusCode != tt.status {
			t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, tt.status)
		}
		if got := IsNotFound(err); got != tt.isNotFound {
			t.Errorf("status %d: IsNotFound = %v, want %v", tt.status, got, tt.isNotFound)
		}
		if got := IsClientRejection(err); got != tt.isClientReject {
			t.Errorf("status %d: IsClientRejection = %v, want %v", tt.status, got, tt.isClientReject)
		}
	}
}

// TestClient_Timeout verifies that a slow remote surfaces the distinct
// timeout class, not a generic transport error.
func TestClient_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Catalog(context.Background())

	if !IsTimeout(err) {
		t.Fatalf("expected timeout class, got %v", err)
	}
}

// TestClient_ConnectionRefused verifies the transport error class for
// an unreachable remote.
func TestClient_ConnectionRefused(t *testing.T) {
	// Reserve a port and close it so nothing is listening.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: addr, Timeout: time.Second})
	_, err := c.Catalog(context.Background())

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
}

// TestClient_CheckConnection tests the connectivity probe.
func TestClient_CheckConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "up" {
			t.Errorf("query = %q, want up", got)
		}
		w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.CheckConnection(context.Background()); err != nil {
		t.Fatalf("CheckConnection() failed: %v", err)
	}
}
