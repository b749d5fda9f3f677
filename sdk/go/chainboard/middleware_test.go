package chainboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestMiddlewareAllowsReads(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/v1/agents", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: code = %d, want 200", method, rec.Code)
		}
	}
}

func TestMiddlewareBlocksWrites(t *testing.T) {
	var reached atomic.Bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached.Store(true)
	}))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/api/v1/killswitch", strings.NewReader("{}")))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: code = %d, want 405", method, rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != "GET, HEAD" {
			t.Fatalf("%s: Allow = %q", method, allow)
		}
		var body struct {
			Blocked bool   `json:"blocked"`
			Method  string `json:"method"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode body: %v", method, err)
		}
		if !body.Blocked || body.Method != method {
			t.Fatalf("%s: body = %+v", method, body)
		}
	}
	if reached.Load() {
		t.Fatal("blocked request reached the inner handler")
	}
}

func TestReadOnlyTransportBlocksWrites(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	hc := &http.Client{Transport: ReadOnly(nil)}

	resp, err := hc.Post(srv.URL, "application/json", strings.NewReader("{}"))
	if err == nil {
		resp.Body.Close()
		t.Fatal("POST went through the read-only transport")
	}
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("err = %v, want ErrReadOnly", err)
	}
	if hits.Load() != 0 {
		t.Fatal("blocked request left the process")
	}

	resp, err = hc.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if hits.Load() != 1 {
		t.Fatalf("server hits = %d, want 1", hits.Load())
	}
}
