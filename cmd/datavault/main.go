package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/datavault/internal/alert"
	"github.com/dropDatabas3/datavault/internal/blobstore"
	"github.com/dropDatabas3/datavault/internal/cache"
	"github.com/dropDatabas3/datavault/internal/catalog/core"
	catalogmem "github.com/dropDatabas3/datavault/internal/catalog/memory"
	catalogpg "github.com/dropDatabas3/datavault/internal/catalog/pg"
	"github.com/dropDatabas3/datavault/internal/config"
	"github.com/dropDatabas3/datavault/internal/events"
	eventsmem "github.com/dropDatabas3/datavault/internal/events/memory"
	eventsredis "github.com/dropDatabas3/datavault/internal/events/redis"
	httpserver "github.com/dropDatabas3/datavault/internal/http"
	"github.com/dropDatabas3/datavault/internal/lifecycle"
	"github.com/dropDatabas3/datavault/internal/metrics"
	"github.com/dropDatabas3/datavault/internal/observability/logger"
	"github.com/dropDatabas3/datavault/internal/stager"
	"github.com/dropDatabas3/datavault/internal/storeworker"
	"github.com/dropDatabas3/datavault/internal/util"
)

var version = "dev" // inyectado con -ldflags en el build

func main() {
	// .env es opcional: en prod las vars vienen del entorno.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:           "datavault",
		Short:         "Coordinador de ciclo de vida de datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "ruta a config.yaml (opcional)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP y los consumidores de eventos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return serve(cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones del catálogo y termina",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			return migrate(cfg)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func migrate(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := catalogpg.New(ctx, cfg.Catalog.DSN, catalogpg.Tuning{})
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Println("migrations ok")
	return nil
}

func serve(cfg *config.Config) error {
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "datavault",
		Version:     version,
	})
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- catálogo ----
	var catalog core.Repository
	switch cfg.Catalog.Driver {
	case "memory":
		catalog = catalogmem.New()
		log.Warn("catálogo en memoria: sólo para dev/testing")
	default:
		store, err := catalogpg.New(ctx, cfg.Catalog.DSN, catalogpg.Tuning{
			MaxConns:        cfg.Catalog.Postgres.MaxConns,
			MinConns:        cfg.Catalog.Postgres.MinConns,
			ConnMaxLifetime: cfg.Catalog.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
		if cfg.Flags.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		catalog = store
	}
	defer catalog.Close()

	// ---- blobstore ----
	var store blobstore.Gateway
	switch cfg.Blobstore.Driver {
	case "memory":
		store = blobstore.NewMemory()
	default:
		fsStore, err := blobstore.NewFS(cfg.Blobstore.Root)
		if err != nil {
			return fmt.Errorf("blobstore: %w", err)
		}
		store = fsStore
	}

	// ---- bus de eventos ----
	var bus events.Bus
	switch cfg.Events.Driver {
	case "memory":
		bus = eventsmem.New()
	default:
		rb, err := eventsredis.New(eventsredis.Config{
			Addr:     cfg.Events.Redis.Addr,
			Password: cfg.Events.Redis.Password,
			DB:       cfg.Events.Redis.DB,
			Prefix:   cfg.Events.Redis.Prefix,
			MaxLen:   cfg.Events.Redis.MaxLen,
		})
		if err != nil {
			return fmt.Errorf("events: %w", err)
		}
		bus = rb
	}
	defer bus.Close()

	// ---- cache + alertas ----
	payloadCache, err := cache.New(cache.Config{
		Driver:     cfg.Cache.Driver,
		Addr:       cfg.Cache.Addr,
		Password:   cfg.Cache.Password,
		DB:         cfg.Cache.DB,
		Prefix:     cfg.Cache.Prefix,
		DefaultTTL: cfg.Cache.DefaultTTL,
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer payloadCache.Close()

	var alerts alert.Notifier = alert.Nop{}
	if cfg.Alerts.To != "" && cfg.Alerts.SMTP.Host != "" {
		smtp := alert.NewSMTP(
			cfg.Alerts.SMTP.Host, cfg.Alerts.SMTP.Port,
			cfg.Alerts.SMTP.From, cfg.Alerts.To,
			cfg.Alerts.SMTP.Username, cfg.Alerts.SMTP.Password,
		)
		if cfg.Alerts.SMTP.TLS != "" {
			smtp.TLSMode = cfg.Alerts.SMTP.TLS
		}
		smtp.InsecureSkipVerify = cfg.Alerts.SMTP.InsecureSkipVerify
		alerts = smtp
		log.Info("alertas por mail habilitadas", logger.String("to", util.MaskEmail(cfg.Alerts.To)))
	}

	// ---- métricas ----
	if err := metrics.RegisterLifecycle(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// ---- núcleo ----
	staging := stager.New()
	coord := lifecycle.New(catalog, staging, store, bus, lifecycle.Options{
		Cache:      payloadCache,
		Alerts:     alerts,
		PayloadTTL: cfg.Cache.DefaultTTL,
	})
	worker := storeworker.New(staging, store, bus)

	// ---- HTTP ----
	handler := httpserver.NewRouter(httpserver.RouterDeps{
		Handlers: httpserver.NewHandlers(coord),
		Registry: prometheus.DefaultRegisterer,
		Catalog:  catalog,
		Bus:      bus,
	})
	srv := httpserver.NewServer(cfg.Server.Addr, handler)

	subs := append(coord.Subscriptions(cfg.Events.Workers), worker.Subscription(cfg.Events.Workers))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("consumidores de eventos arrancando",
			logger.String("group", cfg.Events.Group),
			logger.Int("workers", cfg.Events.Workers),
		)
		return events.Run(gctx, bus, cfg.Events.Group, subs...)
	})

	g.Go(func() error {
		log.Info("http escuchando", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("apagando, drenando conexiones")
		return httpserver.Shutdown(srv, 15*time.Second)
	})

	if err := g.Wait(); err != nil {
		log.Error("terminado con error", logger.Err(err))
		return err
	}
	log.Info("apagado limpio")
	return nil
}
