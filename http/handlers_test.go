package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"irisserve/db"
	"irisserve/ml"
)

func TestMain(m *testing.M) {
	dbPath := "./test.db"
	if err := db.InitDB(dbPath); err != nil {
		os.Exit(1)
	}

	code := m.Run()

	db.Close()
	os.Remove(dbPath)
	os.Exit(code)
}

func newTestMux() *http.ServeMux {
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	return mux
}

func loadedWrapper(t *testing.T) *ml.Wrapper {
	t.Helper()
	w := ml.NewWrapper(ml.WrapperConfig{Type: ml.ModelTypeRules})
	if err := w.Load(); err != nil {
		t.Fatalf("load wrapper: %v", err)
	}
	return w
}

func decodeBody(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("invalid json %q: %v", body, err)
	}
	return payload
}

func TestHandleRoot(t *testing.T) {
	mux := newTestMux()
	SetServiceInfo(ServiceInfo{Name: "iris-inference-service", Version: "1.0.0"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodeBody(t, w.Body.Bytes())
	if payload["service"] != "iris-inference-service" {
		t.Fatalf("unexpected service name: %v", payload["service"])
	}
	endpoints, ok := payload["endpoints"].(map[string]interface{})
	if !ok || endpoints["predict"] != "/predict" {
		t.Fatalf("unexpected endpoints: %v", payload["endpoints"])
	}
}

func TestHandleHealthAlwaysOK(t *testing.T) {
	mux := newTestMux()

	// Not loaded yet: still 200.
	SetModel(ml.NewWrapper(ml.WrapperConfig{Type: ml.ModelTypeRules}))
	defer SetModel(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodeBody(t, w.Body.Bytes())
	if payload["status"] != "alive" {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["model_loaded"] != false {
		t.Fatalf("expected model_loaded false, got %v", payload["model_loaded"])
	}

	// Loaded: still 200, flag flips.
	SetModel(loadedWrapper(t))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if payload := decodeBody(t, w.Body.Bytes()); payload["model_loaded"] != true {
		t.Fatalf("expected model_loaded true, got %v", payload["model_loaded"])
	}
}

func TestHandleReadyGatesOnLoad(t *testing.T) {
	mux := newTestMux()

	SetModel(ml.NewWrapper(ml.WrapperConfig{Type: ml.ModelTypeRules}))
	defer SetModel(nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before load, got %d", w.Code)
	}

	SetModel(loadedWrapper(t))
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after load, got %d", w.Code)
	}
	payload := decodeBody(t, w.Body.Bytes())
	if payload["status"] != "ready" || payload["model_loaded"] != true {
		t.Fatalf("unexpected ready body: %v", payload)
	}
}

func TestHandleModelInfo(t *testing.T) {
	mux := newTestMux()
	SetModel(loadedWrapper(t))
	defer SetModel(nil)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/model/info", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodeBody(t, w.Body.Bytes())
	if payload["kind"] != "rules" {
		t.Fatalf("unexpected kind: %v", payload["kind"])
	}
	if payload["loaded"] != true {
		t.Fatalf("expected loaded true, got %v", payload["loaded"])
	}
}
