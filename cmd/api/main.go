package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/commerce/catalog"
	"ai-shopping-gateway/internal/config"
	"ai-shopping-gateway/internal/db"
	"ai-shopping-gateway/internal/httpserver"
	apikeyrepo "ai-shopping-gateway/internal/repository/apikey"
	bucketrepo "ai-shopping-gateway/internal/repository/ratebucket"
	sessionrepo "ai-shopping-gateway/internal/repository/session"
	authsvc "ai-shopping-gateway/internal/service/auth"
	pricingsvc "ai-shopping-gateway/internal/service/pricing"
	ratelimitsvc "ai-shopping-gateway/internal/service/ratelimit"
	sessionsvc "ai-shopping-gateway/internal/service/session"
	"ai-shopping-gateway/internal/sweeper"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	gateways := make([]commerce.PaymentGateway, 0, len(cfg.PaymentGateways))
	for _, g := range cfg.PaymentGateways {
		gateways = append(gateways, commerce.PaymentGateway{ID: g.ID, Title: g.Title})
	}
	shipping := make([]commerce.ShippingMethod, 0, len(cfg.ShippingMethods))
	for _, m := range cfg.ShippingMethods {
		shipping = append(shipping, commerce.ShippingMethod{ID: m.ID, Title: m.Title, CostCents: m.CostCents})
	}
	engine := catalog.New(dbpool, catalog.Settings{
		Currency:        cfg.Currency,
		TaxRateBps:      cfg.TaxRateBps,
		PaymentGateways: gateways,
		ShippingMethods: shipping,
	})

	authService := authsvc.New(apikeyrepo.NewPostgres(dbpool), logger)
	rateService := ratelimitsvc.New(bucketrepo.NewPostgres(dbpool), ratelimitsvc.Limits{
		Read:  cfg.RateLimitRead,
		Write: cfg.RateLimitWrite,
	})
	sessionService := sessionsvc.New(sessionrepo.NewPostgres(dbpool), cfg.SessionTTL)
	pricingService := pricingsvc.New(engine, cfg.EngineTimeout, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Config:   cfg,
		Auth:     authService,
		Rate:     rateService,
		Sessions: sessionService,
		Pricing:  pricingService,
		Engine:   engine,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweeper.New(sessionService, rateService, cfg.SweepInterval, logger).Run(sweepCtx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
