package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tenantcore.io/internal/audit"
	"tenantcore.io/internal/config"
	"tenantcore.io/internal/httpapi"
	"tenantcore.io/internal/obs"
	"tenantcore.io/internal/scope"
	"tenantcore.io/internal/sequence"
	"tenantcore.io/internal/store/pg"
	"tenantcore.io/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(cfg.Build.Version, cfg.Build.Commit)

	store, err := pg.Open(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	codec, err := token.NewCodec(
		token.WithRS256Keys(cfg.Token.PrivateKeyPEM, cfg.Token.PublicKeyPEM),
		token.WithIssuer(cfg.Token.Issuer),
		token.WithKeyID(cfg.Token.KeyID),
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	// Audit pipeline: recorder -> bus -> log writer.
	bus := audit.NewBus()
	logService := audit.NewLogService(store)
	audit.RegisterLogWriter(bus, logService)

	// Scoped execution and tenant sequences share the store's bound sessions.
	scopeService := scope.NewPersistenceService(scope.NewContextService(), store)
	generator := sequence.NewGenerator(store)

	api := httpapi.New(httpapi.ReadyProbe{DB: store.DB()}, httpapi.Options{
		Version:        cfg.Build.Version,
		Codec:          codec,
		CookieName:     cfg.Token.CookieName,
		AuditLog:       logService,
		Scope:          scopeService,
		Sequence:       generator,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	log.Printf("Starting tenantcore-api %s on %s", cfg.Build.Version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	obs.SetReady(true)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
