package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amirbeek/TinyDesk/internal/config"
	"github.com/Amirbeek/TinyDesk/internal/database"
	"github.com/Amirbeek/TinyDesk/internal/handlers"
	"github.com/Amirbeek/TinyDesk/internal/logger"
	"github.com/Amirbeek/TinyDesk/internal/mailer"
	"github.com/Amirbeek/TinyDesk/internal/middleware"
	"github.com/Amirbeek/TinyDesk/internal/oauth"
	"github.com/Amirbeek/TinyDesk/internal/repository"
	"github.com/Amirbeek/TinyDesk/internal/routes"
	"github.com/Amirbeek/TinyDesk/internal/server"
	"github.com/Amirbeek/TinyDesk/internal/services"
	"github.com/Amirbeek/TinyDesk/internal/token"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{Development: cfg.App.Env == "development"})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() {
		_ = zl.Sync()
	}()
	sugar := zl.Sugar()
	sugar.Infof("Starting tinydesk auth service in %s environment on port %d", cfg.App.Env, cfg.App.Port)

	db, mongoClient, err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()

	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	defer func() {
		_ = rdb.Close()
	}()

	var mail mailer.Mailer
	if cfg.Mail.BrevoAPIKey != "" {
		mail = mailer.NewBrevoMailer(cfg.Mail.BrevoAPIKey, cfg.Mail.FromEmail, cfg.Mail.FromName)
		sugar.Info("Brevo mailer configured")
	} else {
		mail = mailer.NewLogMailer(sugar)
		sugar.Warn("No Brevo API key set, emails will only be logged")
	}

	google := oauth.NewGoogle(oauth.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		CallbackURL:  cfg.Google.CallbackURL,
	})

	userRepo := repository.NewMongoUserRepo(db)
	tokenRepo := repository.NewMongoTokenRepo(db)
	codec := token.NewCodec([]byte(cfg.JWT.Secret))
	states := oauth.NewRedisStateStore(rdb)

	authSvc, err := services.NewAuthService(
		userRepo, tokenRepo, codec, mail, google, states, sugar,
		cfg.App.FrontendURL,
		cfg.SessionTTL(), cfg.ActivationTTL(), cfg.ResetTTL(),
		cfg.Security.PasswordHashCost,
	)
	if err != nil {
		sugar.Fatal(err)
	}

	h := handlers.NewHandler(authSvc, userRepo, cfg.App.FrontendURL, sugar)

	app := server.New(cfg, zl)
	limiter := middleware.NewRateLimiter(rdb, "auth_rl", cfg.Security.AuthRateLimitPerMin, time.Minute)
	routes.Setup(app, h, limiter.ByIP(), middleware.RequireAuth(codec))

	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
			sugar.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		sugar.Errorf("shutdown error: %v", err)
	}
}
