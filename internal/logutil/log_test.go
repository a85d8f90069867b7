package logutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), logger)
	l := GetOrDefault(ctx)
	l.Info().Msg("hello")
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Fatalf("logger from context should write to the installed writer, got %q", buf.String())
	}
}

func TestMiddlewareWritesAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := Middleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := FromRequest(r)
		l.Debug().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/folders", nil))

	if rec.Code != http.StatusTeapot {
		t.Fatalf("unexpected status %v", rec.Code)
	}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatal(err)
	}
	if entry["path"] != "/folders" || entry["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected access log entry %v", entry)
	}
	if entry["req_id"] == nil || entry["req_id"] == "" {
		t.Fatalf("access log should carry a request id, got %v", entry)
	}
}
