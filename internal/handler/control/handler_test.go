package control

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/voicebridge/voicebridge/internal/service/recording"
	"github.com/voicebridge/voicebridge/internal/service/stream"
	"github.com/voicebridge/voicebridge/internal/service/upload"
	"github.com/voicebridge/voicebridge/pkg/logger"
)

func newTestAPI(t *testing.T) (*httptest.Server, *stream.Server) {
	t.Helper()
	writer := recording.NewWriter(t.TempDir(), logger.NewNop())
	coordinator := upload.NewCoordinator(nil, logger.NewNop())
	streamSrv := stream.NewServer("127.0.0.1", 1<<20, writer, coordinator, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go streamSrv.Run(ctx)

	r := chi.NewRouter()
	New(streamSrv, 0, logger.NewNop()).RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, streamSrv
}

func postJSON(t *testing.T, url string, body []byte) (*http.Response, Status) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()

	var st Status
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			t.Fatalf("decode status: %v", err)
		}
	}
	return resp, st
}

func TestStartStopStatus(t *testing.T) {
	ts, streamSrv := newTestAPI(t)

	resp, st := postJSON(t, ts.URL+"/server/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start: status %d", resp.StatusCode)
	}
	if !st.Running || st.Port == 0 {
		t.Fatalf("expected running with a port, got %+v", st)
	}
	if !streamSrv.Running() {
		t.Fatalf("stream server not actually running")
	}

	getResp, err := http.Get(ts.URL + "/server/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	defer getResp.Body.Close()
	var got Status
	if err := json.NewDecoder(getResp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Running || got.Port != st.Port {
		t.Fatalf("status mismatch: %+v vs %+v", got, st)
	}

	resp, st = postJSON(t, ts.URL+"/server/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stop: status %d", resp.StatusCode)
	}
	if st.Running || st.Port != 0 {
		t.Fatalf("expected stopped, got %+v", st)
	}
}

func TestStartWithExplicitPortRejectsGarbage(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, _ := postJSON(t, ts.URL+"/server/start", []byte(`{"port": 99999}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range port, got %d", resp.StatusCode)
	}

	resp, err := http.Post(ts.URL+"/server/start", "application/json", bytes.NewReader([]byte("{broken")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}
