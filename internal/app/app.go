package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ykvlv/remind-bot/internal/config"
	"github.com/ykvlv/remind-bot/internal/domain"
	"github.com/ykvlv/remind-bot/internal/reminder"
	"github.com/ykvlv/remind-bot/internal/scheduler"
	"github.com/ykvlv/remind-bot/internal/store"
	"github.com/ykvlv/remind-bot/internal/telegram"
)

const shutdownWait = 5 * time.Second

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot}, nil
}

// Run opens the store, restores state and serves until ctx is canceled or a
// SIGINT/SIGTERM arrives. The scheduler, the HTTP server and the update loop
// share one errgroup.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting remind-bot",
		zap.String("store", a.cfg.StoreBackend),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("bot", a.bot.Self.UserName),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, a.cfg)
	if err != nil {
		a.log.Error("open store failed", zap.Error(err))
		return err
	}
	a.repo = repo
	defer func() { _ = a.repo.Close() }()

	policy, err := domain.ParseWeekdayPolicy(a.cfg.WeekdayPolicy)
	if err != nil {
		return err
	}

	registry := reminder.NewRegistry(repo, a.cfg.MaxReminders, a.log.Named("registry"))
	if err := registry.Load(ctx, time.Now()); err != nil {
		return err
	}
	timezones := reminder.NewTimezones(repo, a.cfg.DefaultTZ, a.log.Named("timezones"))
	if err := timezones.Load(ctx); err != nil {
		return err
	}
	svc := reminder.NewService(registry, timezones, domain.Parser{Weekday: policy})

	limiter := rate.NewLimiter(rate.Limit(a.cfg.SendRate), a.cfg.SendBurst)
	router := telegram.NewRouter(a.bot, a.log.Named("telegram"), svc, limiter)

	sched := scheduler.New(registry,
		scheduler.NewDispatcher(router, a.log.Named("dispatcher")),
		a.log.Named("scheduler"),
		scheduler.WithInterval(a.cfg.PollInterval),
		scheduler.WithBackoff(a.cfg.ErrorBackoff),
	)

	a.httpSrv = &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      newHTTPHandler(registry),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	g.Go(func() error {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case upd, ok := <-updCh:
				if !ok {
					return nil
				}
				a.handleUpdate(gctx, router, upd)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received")
		a.bot.StopReceivingUpdates()

		shCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := a.httpSrv.Shutdown(shCtx); err != nil {
			a.log.Warn("http server shutdown error", zap.Error(err))
		}
		return nil
	})

	err = g.Wait()
	a.log.Info("stopped", zap.Int("pending", registry.Len()))
	return err
}

// handleUpdate keeps a panicking handler from taking the update loop down.
func (a *App) handleUpdate(ctx context.Context, router *telegram.Router, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("update handler panicked", zap.Any("panic", r), zap.Int("update_id", upd.UpdateID))
		}
	}()
	router.HandleUpdate(ctx, upd)
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg config.Config) (store.Repo, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return store.OpenSQLite(ctx, cfg.DBPath)
	case config.BackendJSON:
		return store.OpenJSON(cfg.RemindersFile, cfg.TimezonesFile)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

type pendingCounter interface {
	Len() int
}

// newHTTPHandler serves liveness and Prometheus metrics.
func newHTTPHandler(reg pendingCounter) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "ok pending=%d\n", reg.Len())
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
