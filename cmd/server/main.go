package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"

	"salon-booking/internal/booking"
	"salon-booking/internal/config"
	"salon-booking/internal/handler"
	"salon-booking/internal/middleware"
	"salon-booking/internal/notify"
	"salon-booking/internal/rpc"
	"salon-booking/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// database
	pcfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		log.Fatalf("db config: %v", err)
	}
	pcfg.MaxConns = cfg.Database.MaxConns

	pool, err := pgxpool.NewWithConfig(context.Background(), pcfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	log.Println("connected to postgres")

	if err := store.Migrate(pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")

	st := store.New(pool, cfg.App.Location)

	// mail
	sender := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.FromEmail,
		FromName: cfg.Email.FromName,
		Timeout:  cfg.Email.Timeout,
	})
	dispatcher := notify.NewDispatcher(sender, st)

	retrier := &notify.Retrier{
		Store:       st,
		Sender:      sender,
		MaxAttempts: cfg.Email.MaxAttempts,
		BatchSize:   20,
		Timeout:     cfg.Email.Timeout * 4,
	}
	retryCron, err := retrier.Start(cfg.Email.RetrySpec)
	if err != nil {
		log.Fatalf("outbox retry schedule %q: %v", cfg.Email.RetrySpec, err)
	}

	mgr := booking.NewManager(st, dispatcher, booking.Options{
		Location:     cfg.App.Location,
		ServiceTitle: cfg.App.ServiceTitle,
	})

	rl := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// grpc server
	grpcSrv := grpc.NewServer(
		rpc.ServerCodec(),
		grpc.ChainUnaryInterceptor(
			middleware.RateLimit(rl, rpc.CreateEventMethod),
			middleware.Auth(cfg.JWT.Secret, rpc.CheckAvailabilityMethod),
		),
	)
	rpc.Register(grpcSrv, rpc.NewServer(mgr))

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	go func() {
		log.Printf("grpc on :%s", cfg.Server.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			log.Printf("grpc: %v", err)
		}
	}()

	// http server
	h := handler.New(st, mgr, dispatcher, rl, handler.Options{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTokenTTL,
		RefreshTTL: cfg.JWT.RefreshTokenTTL,
		ResetTTL:   cfg.JWT.ResetTokenTTL,
		BaseURL:    cfg.App.BaseURL,
	})
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Server(cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	go func() {
		log.Printf("http on :%s", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http: %v", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	grpcSrv.GracefulStop()
	<-retryCron.Stop().Done()
	rl.Stop()
}
