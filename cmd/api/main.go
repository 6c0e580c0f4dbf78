package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"GameHub/internal/config"
	"GameHub/internal/pkg"
	"GameHub/internal/repository/db"
	"GameHub/internal/repository/redis"
	"GameHub/internal/router"
	"GameHub/internal/service"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load()

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	// 自动建表
	if err = db.Migrate(conn); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// 连接redis
	rdb, err := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	jwt := pkg.NewJWT(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	tokens := redis.NewTokenRepository(rdb, cfg.AccessTTL)
	reviewCache := redis.NewReviewCacheRepository(rdb)
	mailer := pkg.NewSMTPMailer(pkg.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	cloudinary := pkg.NewCloudinaryClient(pkg.CloudinaryConfig{
		BaseURL:      cfg.CloudinaryBaseURL,
		CloudName:    cfg.CloudinaryCloudName,
		UploadPreset: cfg.CloudinaryUploadPreset,
		Folder:       cfg.CloudinaryFolder,
	})

	emailSvc := service.NewEmailService(mailer, redis.NewEmailRepository(rdb))
	users := service.NewUserService(conn, tokens, jwt, emailSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// outbox 投递：配置了 broker 才走 kafka
	var sender service.Sender = service.LogSender
	if len(cfg.KafkaBrokers) > 0 {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	go service.NewOutboxRelayer(conn, sender, cfg.OutboxInterval).Run(ctx)
	go service.NewRatingReconciler(conn, reviewCache, cfg.ReconcileInterval).Run(ctx)

	r := router.InitRouter(router.Deps{
		JWT:         jwt,
		Tokens:      tokens,
		Users:       users,
		Games:       service.NewGameService(conn, reviewCache),
		Reviews:     service.NewReviewService(conn, reviewCache, &redis.DistLock{RDB: rdb}),
		Sessions:    service.NewSessionService(conn),
		Uploads:     service.NewUploadService(cloudinary),
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("GameHub listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}
