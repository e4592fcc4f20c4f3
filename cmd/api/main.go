package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chiremba/chiremba-api/internal/ai"
	"github.com/chiremba/chiremba-api/internal/auth"
	"github.com/chiremba/chiremba-api/internal/mail"
	"github.com/chiremba/chiremba-api/internal/router"
	"github.com/chiremba/chiremba-api/internal/setting"
	"github.com/chiremba/chiremba-api/internal/user"
	"github.com/chiremba/chiremba-api/pkg/database"
	"github.com/chiremba/chiremba-api/pkg/utilities"
)

func listenAddr() string {
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		return addr
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	return "0.0.0.0:" + port
}

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting chiremba-api")

	authCfg := auth.ConfigFromEnv()
	if err := authCfg.Validate(); err != nil {
		sugar.Fatalf("auth config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// init store
	dbCfg := database.ConfigFromEnv()
	store, closeStore, err := user.OpenStore(ctx, dbCfg)
	if err != nil {
		sugar.Fatalf("store %s: %v", dbCfg.Driver, err)
	}
	sugar.Infow("store ready", "driver", dbCfg.Driver)

	tokens := auth.NewTokenService(authCfg)
	mailer := mail.New(mail.ConfigFromEnv(), sugar)
	users := user.NewUserService(store, tokens, mailer, nil, sugar)

	aiCfg := ai.ConfigFromEnv()
	providers := ai.NewProviders(ctx, aiCfg, sugar)

	handler := router.RegisterRoutes(router.Deps{
		Logger:   sugar,
		Auth:     auth.NewMiddleware(tokens, sugar),
		Tokens:   auth.NewHandler(tokens, sugar),
		Users:    user.NewHandler(users, user.SeedConfigFromEnv(), sugar),
		AI:       ai.NewHandler(providers, ai.NewHistory(aiCfg.HistorySize, aiCfg.HistoryTTL), sugar),
		Settings: setting.NewHandler(setting.ConfigFromEnv(), aiCfg.Enabled(), sugar),
		CORS:     router.CORSConfigFromEnv(),
	})
	srv := &http.Server{
		Addr:              listenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		sugar.Infow("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// shutdown http server
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	if err := closeStore(doneCtx); err != nil {
		sugar.Warnf("store close failed: %v", err)
	}

	sugar.Info("goodbye")
}
