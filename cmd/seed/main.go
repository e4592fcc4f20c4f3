// Command seed creates the default admin and staff accounts when the store
// has no admin yet. It is safe to run repeatedly.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/internal/auth"
	"github.com/chiremba/chiremba-api/internal/mail"
	"github.com/chiremba/chiremba-api/internal/user"
	"github.com/chiremba/chiremba-api/pkg/database"
	"github.com/chiremba/chiremba-api/pkg/utilities"
)

func main() {
	_ = godotenv.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	if err := run(lg.Sugar()); err != nil {
		lg.Sugar().Errorf("seed: %v", err)
		_ = lg.Sync()
		os.Exit(1)
	}
}

func run(sugar *zap.SugaredLogger) error {
	authCfg := auth.ConfigFromEnv()
	if err := authCfg.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbCfg := database.ConfigFromEnv()
	store, closeStore, err := user.OpenStore(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("store %s: %w", dbCfg.Driver, err)
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			sugar.Warnf("store close failed: %v", err)
		}
	}()

	svc := user.NewUserService(store, auth.NewTokenService(authCfg), mail.New(mail.ConfigFromEnv(), sugar), nil, sugar)
	created, err := svc.SeedDefaults(ctx, user.SeedConfigFromEnv())
	if err != nil {
		return err
	}
	if !created {
		sugar.Info("admin user already exists; nothing to do")
		return nil
	}
	sugar.Info("default accounts created")
	return nil
}
