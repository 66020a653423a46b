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

	"github.com/pcouto/parlor/backend/internal/config"
	"github.com/pcouto/parlor/backend/internal/handler"
	"github.com/pcouto/parlor/backend/internal/service/ai"
	"github.com/pcouto/parlor/backend/internal/service/conversation"
	"github.com/pcouto/parlor/backend/internal/service/folder"
	"github.com/pcouto/parlor/backend/internal/service/session"
	"github.com/pcouto/parlor/backend/internal/storage"
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

	store := openStore(cfg.Storage)
	defer store.Close()

	folderSvc := folder.NewService(store)
	conversationSvc := conversation.NewService(store, folderSvc)
	folderSvc.SetReassigner(conversationSvc)

	var gateway session.Gateway
	if cfg.AI.Enabled() {
		aiSvc, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize model gateway: %v", err)
			log.Println("continuing with send disabled - check the ARK_* environment variables")
		} else {
			gateway = aiSvc
			log.Printf("model gateway initialized, model=%s", cfg.AI.Model)
		}
	} else {
		log.Println("model credentials not configured, send is disabled")
	}

	sessionSvc := session.NewService(gateway, conversationSvc)
	sessionSvc.Resume(ctx)

	router := handler.NewRouter(folderSvc, conversationSvc, sessionSvc)

	startServer(ctx, cfg.Server, router)
}

// openStore falls back to the in-memory store so a broken storage path
// degrades persistence, not the whole service.
func openStore(cfg config.StorageConfig) storage.Store {
	if cfg.Path == "" {
		log.Println("no storage path configured, state will not survive restarts")
		return storage.NewMemoryStore()
	}

	store, err := storage.OpenSQLite(cfg.Path)
	if err != nil {
		log.Printf("warning: failed to open storage at %s: %v", cfg.Path, err)
		log.Println("continuing with in-memory state only")
		return storage.NewMemoryStore()
	}

	log.Printf("storage opened at %s", cfg.Path)
	return store
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Parlor backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
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
