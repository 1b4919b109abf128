package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elitestore/go-storefront/internal/cart"
	"github.com/elitestore/go-storefront/internal/catalog"
	"github.com/elitestore/go-storefront/internal/config"
	"github.com/elitestore/go-storefront/internal/events"
	"github.com/elitestore/go-storefront/internal/httpx"
	"github.com/elitestore/go-storefront/internal/identity"
	kafkax "github.com/elitestore/go-storefront/internal/kafka"
	"github.com/elitestore/go-storefront/internal/orders"
	"github.com/elitestore/go-storefront/internal/payment"
	"github.com/elitestore/go-storefront/internal/postgres"
	"github.com/elitestore/go-storefront/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()
	logrus.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logrus.WithError(err).Fatal("db connect")
	}
	defer db.Close()

	if cfg.EnsureSchema {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			logrus.WithError(err).Fatal("ensure schema")
		}
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	catalogProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicCatalogChanged, 1024)
	catalogProd.Start(ctx)
	createdProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderCreated, 1024)
	createdProd.Start(ctx)
	paidProd := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderPaid, 1024)
	paidProd.Start(ctx)

	catalogRepo := &catalog.Repo{DB: db}
	cartRepo := &cart.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	userRepo := &identity.Repo{DB: db}
	sessions := &identity.Sessions{Redis: rdb}

	orderSvc := &orders.Service{
		Store:       orderRepo,
		Cart:        cartRepo,
		Processor:   payment.NewStripe(cfg.StripeSecretKey),
		Rates:       cfg.Rates,
		Idem:        &redisx.IdemCheckout{Redis: rdb},
		Created:     createdProd,
		Paid:        paidProd,
		ServiceName: cfg.ServiceName,
	}

	catalogH := &httpx.CatalogHandler{
		Store:    catalogRepo,
		Redis:    rdb,
		Producer: catalogProd,
		Service:  cfg.ServiceName,
	}
	cartH := &httpx.CartHandler{Store: cartRepo, Rates: cfg.Rates}
	ordersH := &httpx.OrdersHandler{Service: orderSvc, Redis: rdb}
	authH := &httpx.AuthHandler{
		Users:        userRepo,
		Sessions:     sessions,
		SharedSecret: cfg.IdpSharedSecret,
	}
	auth := &httpx.Auth{Sessions: sessions}

	router := httpx.NewRouter()
	router.Route("/api", func(r chi.Router) {
		catalogH.RegisterPublic(r)
		authH.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			authH.RegisterAuthed(r)
			cartH.Register(r)
			ordersH.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Require, auth.RequireAdmin)
			catalogH.RegisterAdmin(r)
			ordersH.RegisterAdmin(r)
		})
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logrus.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// close inboxes, flush writers, then stop the producer loops
	catalogProd.Close()
	createdProd.Close()
	paidProd.Close()
	cancel()
	catalogProd.WaitClosed()
	createdProd.WaitClosed()
	paidProd.WaitClosed()
}
