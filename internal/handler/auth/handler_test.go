package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/voicebridge/voicebridge/internal/service/identity"
	"github.com/voicebridge/voicebridge/internal/service/recording"
	"github.com/voicebridge/voicebridge/internal/service/stream"
	"github.com/voicebridge/voicebridge/internal/service/upload"
	"github.com/voicebridge/voicebridge/pkg/logger"
)

func newTestAPI(t *testing.T, withStore bool) *httptest.Server {
	t.Helper()

	var users identity.Store
	if withStore {
		db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		if users, err = identity.NewStore(db, logger.NewNop()); err != nil {
			t.Fatalf("create store: %v", err)
		}
	}

	writer := recording.NewWriter(t.TempDir(), logger.NewNop())
	coordinator := upload.NewCoordinator(nil, logger.NewNop())
	streamSrv := stream.NewServer("127.0.0.1", 1<<20, writer, coordinator, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go streamSrv.Run(ctx)

	r := chi.NewRouter()
	New(users, streamSrv, logger.NewNop()).RegisterRoutes(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, payload map[string]string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(payload)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSignupLoginFlow(t *testing.T) {
	ts := newTestAPI(t, true)
	creds := map[string]string{"email": "alice@example.com", "password": "s3cret"}

	resp := post(t, ts.URL+"/auth/signup", creds)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: status %d", resp.StatusCode)
	}
	var user identity.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username should be the email local part, got %q", user.Username)
	}

	if resp := post(t, ts.URL+"/auth/signup", creds); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: status %d", resp.StatusCode)
	}

	if resp := post(t, ts.URL+"/auth/login", creds); resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}

	bad := map[string]string{"email": "alice@example.com", "password": "nope"}
	if resp := post(t, ts.URL+"/auth/login", bad); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d", resp.StatusCode)
	}
}

func TestAuthUnavailableWithoutStore(t *testing.T) {
	ts := newTestAPI(t, false)

	creds := map[string]string{"email": "alice@example.com", "password": "pw"}
	if resp := post(t, ts.URL+"/auth/login", creds); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a user store, got %d", resp.StatusCode)
	}
}

func TestLogoutStopsServer(t *testing.T) {
	ts := newTestAPI(t, false)

	resp := post(t, ts.URL+"/auth/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}
}
