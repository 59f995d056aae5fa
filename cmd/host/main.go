package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voicebridge/voicebridge/internal/config"
	"github.com/voicebridge/voicebridge/internal/handler"
	"github.com/voicebridge/voicebridge/internal/handler/auth"
	"github.com/voicebridge/voicebridge/internal/handler/control"
	"github.com/voicebridge/voicebridge/internal/service/identity"
	"github.com/voicebridge/voicebridge/internal/service/recording"
	"github.com/voicebridge/voicebridge/internal/service/stream"
	"github.com/voicebridge/voicebridge/internal/service/upload"
	"github.com/voicebridge/voicebridge/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLog, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	// Identity store is optional: without DATABASE_URL the host runs
	// auth-less and recordings stay unattributed (uploads skipped).
	var users identity.Store
	if cfg.Database.URL != "" {
		db, err := identity.Open(cfg.Database.URL)
		if err != nil {
			appLog.Errorf("[host] user database unavailable: %v", err)
			appLog.Warnf("[host] continuing without authentication")
		} else if users, err = identity.NewStore(db, appLog); err != nil {
			appLog.Errorf("[host] user store init failed: %v", err)
			appLog.Warnf("[host] continuing without authentication")
			users = nil
		}
	} else {
		appLog.Infof("[host] DATABASE_URL not set, authentication disabled")
	}

	// Object storage is optional: without it recordings stay local.
	var objectStore upload.ObjectUploader
	if cfg.Storage.Enabled() {
		s3Uploader, err := upload.NewS3Uploader(ctx, cfg.Storage, appLog)
		if err != nil {
			appLog.Errorf("[host] S3 uploader init failed: %v", err)
		} else {
			objectStore = s3Uploader
			appLog.Infof("[host] uploads enabled to bucket %s", cfg.Storage.Bucket)
		}
	} else {
		appLog.Infof("[host] S3 not configured, recordings stay local")
	}

	writer := recording.NewWriter(cfg.Recording.Dir, appLog)
	coordinator := upload.NewCoordinator(objectStore, appLog)
	streamSrv := stream.NewServer(cfg.Stream.Host, cfg.Recording.MaxBytes, writer, coordinator, appLog)

	go streamSrv.Run(ctx)
	go drainEvents(ctx, streamSrv, appLog)

	if cfg.Stream.Autostart {
		if err := streamSrv.Start(cfg.Stream.Port); err != nil {
			appLog.Errorf("[host] stream autostart failed: %v", err)
		}
	}

	authHandler := auth.New(users, streamSrv, appLog)
	controlHandler := control.New(streamSrv, cfg.Stream.Port, appLog)
	router := handler.NewRouter(authHandler, controlHandler)

	appLog.Infof("[host] control API listening on %s", cfg.Control.Addr)
	if err := runServer(ctx, &http.Server{
		Addr:              cfg.Control.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}); err != nil {
		log.Fatalf("control server error: %v", err)
	}
}

// drainEvents surfaces stream lifecycle notifications in the host log.
func drainEvents(ctx context.Context, srv *stream.Server, appLog logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-srv.Events():
			switch ev.Kind {
			case stream.EventStarted:
				appLog.Infof("[host] stream server running on port %d", ev.Port)
			case stream.EventStopped:
				appLog.Infof("[host] stream server stopped")
			case stream.EventConnected:
				appLog.Infof("[host] mobile client connected (%s)", ev.SessionID)
			case stream.EventDisconnected:
				appLog.Infof("[host] mobile client disconnected (%s)", ev.SessionID)
			}
		}
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
