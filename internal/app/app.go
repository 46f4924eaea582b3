package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	memorykv "github.com/heartmarshall/refdict/internal/adapter/memory/kvstore"
	"github.com/heartmarshall/refdict/internal/adapter/postgres"
	postgreskv "github.com/heartmarshall/refdict/internal/adapter/postgres/kvstore"
	"github.com/heartmarshall/refdict/internal/adapter/provider/refapi"
	sqlitekv "github.com/heartmarshall/refdict/internal/adapter/sqlite/kvstore"
	"github.com/heartmarshall/refdict/internal/config"
	"github.com/heartmarshall/refdict/internal/metrics"
	"github.com/heartmarshall/refdict/internal/service/dictcache"
	"github.com/heartmarshall/refdict/internal/service/labels"
	"github.com/heartmarshall/refdict/internal/service/picker"
	"github.com/heartmarshall/refdict/internal/transport/middleware"
	"github.com/heartmarshall/refdict/internal/transport/rest"
	"github.com/heartmarshall/refdict/pkg/ctxutil"
)

type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	PutMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// namespacePurger is implemented by shared backends that scope keys to a
// namespace.
type namespacePurger interface {
	Purge(ctx context.Context) (int64, error)
}

// ErrNoNamespace is returned by PurgeNamespace for backends that keep only
// this process's keys.
var ErrNoNamespace = errors.New("storage backend has no namespace")

// App holds the wired components. Close releases them.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Store    *dictcache.Store
	Labels   *labels.Loader
	Pickers  *picker.Service

	storage kvStore
	closers []func()
}

// New wires every component from cfg and warms the cache from the durable
// store. It does not touch the network.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.Metrics = metrics.New(a.Registry, cfg.Metrics.Namespace)
	}

	kv, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.storage = kv

	fetcher := refapi.NewProvider(cfg.RefAPI, logger)
	a.Store = dictcache.New(logger, fetcher, kv, cfg.Cache, dictcache.WithRecorder(a.recorder()))
	a.closers = append(a.closers, a.Store.Dispose)

	if err := a.Store.Init(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init cache: %w", err)
	}

	a.Labels = labels.NewLoader(logger, a.Store, a.labelRecorder())
	a.Pickers = picker.NewService(logger, a.Store, a.pickerRecorder())

	logger.InfoContext(ctx, "application wired",
		slog.String("version", BuildVersion()),
		slog.String("storage", cfg.Storage.Backend),
		slog.Bool("metrics", cfg.Metrics.Enabled),
	)
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (kvStore, error) {
	switch a.Config.Storage.Backend {
	case config.BackendMemory:
		return memorykv.New(), nil

	case config.BackendSQLite:
		s, err := sqlitekv.Open(ctx, a.Config.Storage.SQLitePath, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		return s, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, a.Config.Database)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			return nil, err
		}
		return postgreskv.New(pool, postgres.NewTxManager(pool), a.Config.Storage.Namespace), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.Config.Storage.Backend)
}

func (a *App) recorder() *metrics.Metrics { return a.Metrics }

// labelRecorder and pickerRecorder keep a disabled registry as a nil interface.
func (a *App) labelRecorder() interface{ ObserveLabelBatch(int) } {
	if a.Metrics == nil {
		return nil
	}
	return a.Metrics
}

func (a *App) pickerRecorder() interface{ IncSelectionChange(bool) } {
	if a.Metrics == nil {
		return nil
	}
	return a.Metrics
}

// Close releases components in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// PurgeNamespace drops the cached snapshot and then deletes every key of
// the configured storage namespace, including keys written by other
// processes. It returns the number of keys removed.
func (a *App) PurgeNamespace(ctx context.Context) (int64, error) {
	p, ok := a.storage.(namespacePurger)
	if !ok {
		return 0, fmt.Errorf("%s: %w", a.Config.Storage.Backend, ErrNoNamespace)
	}
	if err := a.Store.Invalidate(ctx); err != nil {
		return 0, err
	}
	n, err := p.Purge(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge namespace %q: %w", a.Config.Storage.Namespace, err)
	}
	a.Logger.InfoContext(ctx, "storage namespace purged",
		slog.String("namespace", a.Config.Storage.Namespace),
		slog.Int64("keys", n),
	)
	return n, nil
}

// KeepWarm refreshes the cache every interval until ctx ends. Failures are
// logged; the previous snapshot keeps serving.
func (a *App) KeepWarm(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx := ctxutil.NewRun(ctx)
			if _, err := a.Store.RefreshAll(runCtx); err != nil && ctx.Err() == nil {
				a.Logger.WarnContext(runCtx, "background refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Handler returns the operator HTTP surface: liveness, readiness and health
// endpoints, plus /metrics when metrics are enabled.
func (a *App) Handler() http.Handler {
	health := rest.NewHealthHandler(a.Store, a.storage, a.Config.Cache.TTL, BuildVersion())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /live", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)
	mux.HandleFunc("GET /health", health.Health)
	if a.Registry != nil {
		mux.Handle("GET /metrics", metrics.Handler(a.Registry))
	}

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(a.Logger),
		middleware.Logger(a.Logger),
	)(mux)
}

// Serve serves Handler on addr until ctx ends.
func (a *App) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: a.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	a.Logger.InfoContext(ctx, "serving operator endpoints", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
