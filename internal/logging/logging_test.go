package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureLogOutput points the global logger at a buffer for the duration of f.
func captureLogOutput(t *testing.T, level Level, format Format, f func()) string {
	t.Helper()
	var buf bytes.Buffer
	InitLoggerTo(&buf, level, format)
	t.Cleanup(func() { InitLogger(LevelInfo, FormatJSON) })
	f()
	return buf.String()
}

func decodeLine(t *testing.T, out string) map[string]any {
	t.Helper()
	line := strings.TrimSpace(strings.Split(strings.TrimSpace(out), "\n")[0])
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log line %q is not JSON: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("text"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(text) = %v, %v", f, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(json) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestInitLoggerLevels(t *testing.T) {
	out := captureLogOutput(t, LevelWarn, FormatJSON, func() {
		Debug("hidden debug")
		Info("hidden info")
		Warn("shown warn")
		Error("shown error")
	})
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn were logged: %s", out)
	}
	if !strings.Contains(out, "shown warn") || !strings.Contains(out, "shown error") {
		t.Errorf("expected warn and error messages, got: %s", out)
	}
}

func TestInitLoggerTextFormat(t *testing.T) {
	out := captureLogOutput(t, LevelInfo, FormatText, func() {
		Info("text message", "key", "value")
	})
	if !strings.Contains(out, `msg="text message"`) || !strings.Contains(out, "key=value") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestTimestampRFC3339(t *testing.T) {
	out := captureLogOutput(t, LevelInfo, FormatJSON, func() {
		Info("timestamp test")
	})
	m := decodeLine(t, out)
	ts, _ := m["time"].(string)
	if !strings.Contains(ts, "T") || strings.Contains(ts, ".") {
		t.Errorf("time = %q, want RFC3339 without fractional seconds", ts)
	}
}

func TestContextValues(t *testing.T) {
	ctx := WithRunID(WithRequestID(context.Background(), "req-1"), "run-1")
	if GetRequestID(ctx) != "req-1" || GetRunID(ctx) != "run-1" {
		t.Fatalf("context values lost: %q %q", GetRequestID(ctx), GetRunID(ctx))
	}
	if GetRequestID(context.Background()) != "" || GetRunID(context.Background()) != "" {
		t.Error("empty context should carry no ids")
	}

	out := captureLogOutput(t, LevelDebug, FormatJSON, func() {
		InfoContext(ctx, "with ids")
	})
	m := decodeLine(t, out)
	if m["request_id"] != "req-1" || m["run_id"] != "run-1" {
		t.Errorf("log line missing ids: %v", m)
	}
}

func TestContextLoggingFunctions(t *testing.T) {
	ctx := WithRequestID(context.Background(), "ctx-req")
	out := captureLogOutput(t, LevelDebug, FormatJSON, func() {
		DebugContext(ctx, "d")
		InfoContext(ctx, "i")
		WarnContext(ctx, "w")
		ErrorContext(ctx, "e")
	})
	if n := strings.Count(out, "ctx-req"); n != 4 {
		t.Errorf("request id appeared %d times, want 4:\n%s", n, out)
	}
}

func TestBatchPhase(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-7")
	out := captureLogOutput(t, LevelInfo, FormatJSON, func() {
		BatchPhase(ctx, "decompose", "done", "words", 12)
	})
	m := decodeLine(t, out)
	if m["msg"] != "batch_phase" || m["phase"] != "decompose" || m["state"] != "done" || m["words"] != float64(12) {
		t.Errorf("unexpected batch_phase line: %v", m)
	}
	if m["run_id"] != "run-7" {
		t.Errorf("run_id = %v, want run-7", m["run_id"])
	}
}

func TestWordFailure(t *testing.T) {
	out := captureLogOutput(t, LevelInfo, FormatJSON, func() {
		WordFailure(context.Background(), "ABC", "record", errors.New("storage conflict"), "formation", 3)
	})
	m := decodeLine(t, out)
	if m["level"] != "ERROR" || m["word"] != "ABC" || m["operation"] != "record" || m["error"] != "storage conflict" {
		t.Errorf("unexpected word_failure line: %v", m)
	}
}

func TestServerEvents(t *testing.T) {
	out := captureLogOutput(t, LevelInfo, FormatJSON, func() {
		ServerStartup("query", "http", 8000)
		WebSocketEvent("connect", 1, "remote_addr", "127.0.0.1")
		SecurityEvent("origin_rejected", "websocket", "origin", "evil.example")
	})
	for _, want := range []string{"server_startup", `"port":8000`, "websocket_event", `"client_count":1`, "security_event", "origin_rejected"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestStatusRecorder(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.status != http.StatusNotFound || rec.Code != http.StatusNotFound {
		t.Errorf("status = %d/%d, want first WriteHeader to win", rw.status, rec.Code)
	}

	rec = httptest.NewRecorder()
	rw = &statusRecorder{ResponseWriter: rec, status: http.StatusOK}
	if _, err := rw.Write([]byte("ok")); err != nil {
		t.Fatal(err)
	}
	if !rw.wroteHeader || rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("Write did not set implicit 200: code=%d body=%q", rec.Code, rec.Body.String())
	}
	if rw.Unwrap() != rec {
		t.Error("Unwrap should return the wrapped writer")
	}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("Hijack on a recorder should fail")
	}
}

func TestRequestIDs(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{"generates id", "", false},
		{"keeps client id", "client-id-123", true},
		{"replaces oversized id", strings.Repeat("x", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestIDs(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			if got == "" || got != seen {
				t.Fatalf("header %q and context %q should match and be set", got, seen)
			}
			if (got == tt.header) != tt.wantSame {
				t.Errorf("request id = %q, header was %q", got, tt.header)
			}
		})
	}
}

func TestHTTPMiddleware(t *testing.T) {
	out := captureLogOutput(t, LevelInfo, FormatJSON, func() {
		h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/query/ABC", nil))
	})
	m := decodeLine(t, out)
	if m["msg"] != "http_request" || m["path"] != "/query/ABC" || m["status_code"] != float64(http.StatusTeapot) {
		t.Errorf("unexpected access log: %v", m)
	}
	if id, _ := m["request_id"].(string); id == "" {
		t.Error("access log should carry the request id")
	}
}

func TestServerErrorsLogAtErrorLevel(t *testing.T) {
	out := captureLogOutput(t, LevelInfo, FormatJSON, func() {
		h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/query/AB", nil))
	})
	if m := decodeLine(t, out); m["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", m["level"])
	}
}
