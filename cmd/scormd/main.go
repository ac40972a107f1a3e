package main

import (
	"context"
	"net/http"
	"time"

	api "github.com/mind-engage/scorm-engine/internal/api/http"
	auth "github.com/mind-engage/scorm-engine/internal/auth/middleware"
	"github.com/mind-engage/scorm-engine/internal/config"
	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/db"
	"github.com/mind-engage/scorm-engine/internal/events"
	"github.com/mind-engage/scorm-engine/internal/grading"
	rbac "github.com/mind-engage/scorm-engine/internal/rbac"
	"github.com/mind-engage/scorm-engine/internal/tracking"
	"github.com/mind-engage/scorm-engine/pkg/gradesync/agshttp"
	gradesync "github.com/mind-engage/scorm-engine/pkg/gradesync/gradesync"
	"github.com/mind-engage/scorm-engine/pkg/gradesync/httpchi"
	"github.com/mind-engage/scorm-engine/pkg/gradesync/sqlstore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}

	trackStore := tracking.NewSQLStore(dbh)
	provider := content.NewSQLProvider(dbh)

	// --- Grading pipeline ---
	policies := grading.NewPackagePolicySource(provider, grading.Policy{
		Method:     grading.Method(cfg.DefaultGradeMethod),
		WhatGrade:  grading.WhatGrade(cfg.DefaultWhatGrade),
		MaxAttempt: cfg.DefaultMaxAttempt,
	})
	agg := grading.NewAggregator(trackStore, provider)

	recorder := gradesync.NewRecorder()
	var gradeSink grading.GradeSink = recorder
	var syncAPI *httpchi.API
	if cfg.AGSEnabled {
		if err := gradesync.Migrate(ctx, dbh, cfg.DBDriver); err != nil {
			logger.Fatal("gradesync migrate failed", zap.Error(err))
		}
		st := &sqlstore.Store{DB: dbh}
		ags := agshttp.New(agshttp.Config{
			TokenURL:     cfg.AGSTokenURL,
			ClientID:     cfg.AGSClientID,
			ClientSecret: cfg.AGSClientSecret,
			Scopes:       cfg.AGSScopes,
			Timeout:      10 * time.Second,
		})
		syncer := gradesync.New(st, ags, nil)
		gradeSink = syncer
		syncAPI = &httpchi.API{Syncer: syncer, Links: st}
	}
	rec := grading.NewRecomputer(agg, policies, gradeSink, recorder)

	// --- Tracking engine ---
	sink := events.MultiSink{events.NewLogSink(dbh)}
	writer := tracking.NewWriter(trackStore,
		tracking.WithRecomputer(rec),
		tracking.WithSink(sink),
		tracking.WithSCOes(provider),
		tracking.WithLogger(logger),
	)
	deleter := tracking.NewDeleter(trackStore, rec, sink)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)
	loginCfg := auth.LoginConfig{
		AdminUser:     cfg.AdminUser,
		AdminPassHash: cfg.AdminPassHash,
		AllowDev:      cfg.DevLogin,
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, loginCfg))

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Runtime: SCO track writes and reads
		pr.With(rbac.Require(rbac.PermTrackWrite)).
			Post("/packages/{packageID}/scoes/{scoID}/attempts/{attempt}/tracks", api.WriteTracksHandler(writer, provider))
		pr.With(rbac.RequireAny(rbac.PermTrackViewOwn, rbac.PermTrackViewAll)).
			Get("/packages/{packageID}/scoes/{scoID}/attempts/{attempt}/tracks", api.TracksHandler(trackStore))
		pr.With(rbac.RequireAny(rbac.PermTrackViewOwn, rbac.PermTrackViewAll)).
			Get("/packages/{packageID}/scoes/{scoID}/attempts/{attempt}/snapshot", api.SnapshotHandler(trackStore))
		pr.With(rbac.RequireAny(rbac.PermTrackViewOwn, rbac.PermTrackViewAll)).
			Get("/packages/{packageID}/scoes/{scoID}/attempts/{attempt}/window", api.RuntimeWindowHandler(trackStore))

		// Navigation
		pr.With(rbac.Require(rbac.PermPackageView)).
			Get("/packages/{packageID}", api.GetPackageHandler(provider))
		pr.With(rbac.Require(rbac.PermPackageView)).
			Get("/packages/{packageID}/toc", api.TOCHandler(trackStore, provider))
		pr.With(rbac.Require(rbac.PermNavFlow)).
			Get("/packages/{packageID}/nav", api.FlowHandler(trackStore, provider))
		pr.With(rbac.Require(rbac.PermNavFlow)).
			Post("/packages/{packageID}/scoes/{scoID}/attempts/{attempt}/entry", api.EntryHandler(trackStore, provider, provider, sink))

		// Attempts and grades
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/packages/{packageID}/attempts", api.AttemptsHandler(trackStore, provider))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermGradeViewAll)).
			Get("/packages/{packageID}/grade", api.GradeHandler(agg, policies))
		pr.With(rbac.Require(rbac.PermAttemptDelete)).
			Delete("/packages/{packageID}/attempts/{attempt}", api.DeleteAttemptHandler(deleter))
		pr.With(rbac.Require(rbac.PermAttemptDelete)).
			Delete("/packages/{packageID}/tracks", api.DeleteUserTracksHandler(deleter))

		// Package administration
		pr.With(rbac.Require(rbac.PermPackageConfigure)).
			Put("/packages/{packageID}", api.PutPackageHandler(provider))
		pr.With(rbac.Require(rbac.PermPackageConfigure)).
			Put("/packages/{packageID}/scoes", api.ImportSCOesHandler(provider))

		if syncAPI != nil {
			pr.Group(func(gr chi.Router) {
				gr.Use(rbac.Require(rbac.PermPackageConfigure))
				syncAPI.Routes(gr)
			})
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	logger.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db", cfg.DBDriver),
		zap.Bool("ags", cfg.AGSEnabled))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
