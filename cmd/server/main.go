package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Danveyd/NewCatroid/internal/api"
	"github.com/Danveyd/NewCatroid/internal/auth"
	"github.com/Danveyd/NewCatroid/internal/collision"
	"github.com/Danveyd/NewCatroid/internal/config"
	mw "github.com/Danveyd/NewCatroid/internal/middleware"
	"github.com/Danveyd/NewCatroid/internal/scene"
	"github.com/Danveyd/NewCatroid/internal/session"
	"github.com/Danveyd/NewCatroid/internal/store"
)

// Playground scene allows anonymous live sessions.
const playgroundSceneID = "scene_playground"

type backend interface {
	auth.UserStore
	api.SceneStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var db backend
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is empty, scenes are kept in memory")
		db = store.NewMemory()
	} else {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("migrate database", "error", err)
			os.Exit(1)
		}
		db = pg
	}

	authService := auth.NewService(db, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	engine := collision.New(
		collision.WithWorkers(cfg.CollisionWorkers),
		collision.WithCache(collision.NewCache(cfg.TriangulationCacheSize)),
		collision.WithLogger(logger.With("component", "collision")),
	)

	sceneService := api.NewService(db, engine, logger.With("component", "scenes"))

	if err := ensurePlayground(ctx, db, cfg.SeedScene); err != nil {
		slog.Error("seed playground scene", "error", err)
		os.Exit(1)
	}

	hub := session.NewHub(engine, sceneService.Load, liveSaver(sceneService), logger.With("component", "session"))
	go hub.Run()
	sceneService.GuardLive(hub.Live)

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(authService.AuthMiddleware)
	authHandler.Routes(r, authed)

	api.Register(r, authed, api.NewGeometryHandler(engine), api.NewHandler(sceneService))

	r.HandleFunc("/ws/scene/{sceneId}", hub.ServeWS(authorizer(authService, sceneService), cfg.OriginHosts()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop the hub first so dirty rooms are saved.
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// ensurePlayground stores the shared playground scene unless it exists. Its
// content comes from the seed file, or the sample stage without one.
func ensurePlayground(ctx context.Context, scenes api.SceneStore, seedPath string) error {
	if _, err := scenes.GetScene(ctx, playgroundSceneID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	sc := scene.NewSampleScene()
	if seedPath != "" {
		f, err := os.Open(seedPath)
		if err != nil {
			return err
		}
		defer f.Close()

		if sc, err = scene.DecodeYAML(f); err != nil {
			return err
		}
		slog.Info("seeded playground scene", "path", seedPath, "sprites", len(sc.Sprites))
	}
	sc.ID = playgroundSceneID

	_, err := scenes.CreateScene(ctx, store.SceneRecord{ID: sc.ID, Scene: sc})
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}

// liveSaver stores room scenes through the service, reporting a stored scene
// that moved on as stale.
func liveSaver(scenes *api.Service) session.SceneSaver {
	return func(ctx context.Context, s *scene.Scene, base uint64) error {
		err := scenes.Save(ctx, s, base)
		if errors.Is(err, api.ErrConflict) {
			return fmt.Errorf("%w: %v", session.ErrStale, err)
		}
		return err
	}
}

// authorizer admits anyone to the playground and only owners elsewhere.
func authorizer(authSvc *auth.Service, scenes *api.Service) session.Authorizer {
	return func(r *http.Request, sceneID string) (string, string, error) {
		if sceneID == playgroundSceneID {
			return "anon-" + uuid.New().String()[:8], "Anonymous", nil
		}

		userID, err := authSvc.Authenticate(r)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", session.ErrUnauthorized, err)
		}

		switch _, err := scenes.Get(r.Context(), sceneID, userID); {
		case errors.Is(err, api.ErrForbidden):
			return "", "", session.ErrForbidden
		case err != nil && !errors.Is(err, api.ErrNotFound):
			return "", "", err
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", session.ErrUnauthorized, err)
		}
		return userID, user.DisplayName, nil
	}
}
