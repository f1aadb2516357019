package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/skillforge/backend/internal/auth"
	"github.com/skillforge/backend/internal/cache"
	"github.com/skillforge/backend/internal/config"
	"github.com/skillforge/backend/internal/database"
	"github.com/skillforge/backend/internal/gamification"
	"github.com/skillforge/backend/internal/generator"
	"github.com/skillforge/backend/internal/logger"
	"github.com/skillforge/backend/internal/middleware"
	"github.com/skillforge/backend/internal/profile"
	"github.com/skillforge/backend/internal/tasks"
	"github.com/skillforge/backend/internal/validate"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	rdb, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect to redis", "error", err)
	}
	defer rdb.Close()

	catalog := gamification.DefaultCatalog()
	if cfg.BadgeCatalogPath != "" {
		catalog, err = gamification.LoadCatalog(cfg.BadgeCatalogPath)
		if err != nil {
			log.Fatal("failed to load badge catalog", "path", cfg.BadgeCatalogPath, "error", err)
		}
		log.Info("badge catalog loaded", "path", cfg.BadgeCatalogPath, "badges", len(catalog.All()))
	}
	clock := gamification.NewSystemClock(cfg.Location)
	validator := validate.NewValidator()

	// Initialize services
	profileStore := profile.NewStore(db, log)
	profileCache := cache.NewProfileCache(rdb, cfg.ProfileCacheTTL, cfg.LeaderboardCacheTTL, log)
	profileService := profile.NewService(profileStore, profileCache, clock, log)
	gameService := gamification.NewService(profileStore, catalog, clock, profileCache, log)

	userStore := auth.NewStore(db)
	revocations := cache.NewRevocationList(rdb)
	secret := []byte(cfg.JWTSecret)

	broker := tasks.NewBroker(rdb, cfg.TaskResultTTL)
	pool := tasks.NewPool(broker, cfg.WorkerConcurrency, log)
	gen := generator.NewGenerator(cfg, log)
	tasks.NewHandlers(gameService, profileService, userStore, gen, log).Register(pool)
	log.Info("task handlers registered", "model", gen.ModelName(), "concurrency", cfg.WorkerConcurrency)

	// Initialize handlers
	authHandler := auth.NewHandler(userStore, secret, auth.TokenTTLs{Access: cfg.JWTTTL, Refresh: cfg.JWTRefreshTTL}, revocations, validator, log)
	profileHandler := profile.NewHandler(profileService, validator)
	gameHandler := gamification.NewHandler(gameService, validator)
	taskHandler := tasks.NewHandler(broker, validator)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(log))
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.NewAuth(secret, revocations, log).Middleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	protected.HandleFunc("/users", authHandler.ListUsers).Methods("GET")
	protected.HandleFunc("/users/{id:[0-9]+}", authHandler.GetUser).Methods("GET")

	// Profile routes
	protected.HandleFunc("/profile", profileHandler.CreateProfile).Methods("POST")
	protected.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/profile", profileHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/profile", profileHandler.DeleteProfile).Methods("DELETE")
	protected.HandleFunc("/profile/xp", profileHandler.AddXP).Methods("POST")
	protected.HandleFunc("/profile/badges", profileHandler.AddBadge).Methods("POST")
	protected.HandleFunc("/profile/competences", profileHandler.AddCompetence).Methods("POST")
	protected.HandleFunc("/profile/preferences", profileHandler.SetPreferences).Methods("PUT")
	protected.HandleFunc("/profile/activities", profileHandler.LogActivity).Methods("POST")
	protected.HandleFunc("/profile/activities", profileHandler.ListActivities).Methods("GET")
	protected.HandleFunc("/profile/achievements", profileHandler.AddAchievement).Methods("POST")
	protected.HandleFunc("/profile/stats", profileHandler.GetStats).Methods("GET")
	protected.HandleFunc("/profile/leaderboard", profileHandler.GetLeaderboard).Methods("GET")

	// Gamification routes
	protected.HandleFunc("/gamification/quiz", gameHandler.SubmitQuiz).Methods("POST")
	protected.HandleFunc("/gamification/badges", gameHandler.ListBadges).Methods("GET")
	protected.HandleFunc("/gamification/progress", gameHandler.GetProgress).Methods("GET")

	// Background task routes
	protected.HandleFunc("/tasks/profile-analysis", taskHandler.EnqueueProfileAnalysis).Methods("POST")
	protected.HandleFunc("/tasks/profile-question", taskHandler.EnqueueProfileQuestion).Methods("POST")
	protected.HandleFunc("/tasks/{id}", taskHandler.GetTask).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","database":"down"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// Run returns once in-flight tasks are done, so the database and Redis
	// stay open until then.
	g.Go(func() error {
		err := pool.Run(gctx)
		log.Info("task workers drained")
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
