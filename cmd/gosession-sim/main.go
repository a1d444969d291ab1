// Command gosession-sim drives a session Manager against an in-process
// comment backend: guest bootstrap, SSO login, a server-side revocation
// and the recovery that follows.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/gateway/httpgateway"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/kv"
	"github.com/MrEthical07/goSession/kv/badgerstore"
	"github.com/MrEthical07/goSession/kv/redisstore"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/policy"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

type options struct {
	configPath  string
	store       string
	dataDir     string
	redisAddr   string
	tenant      string
	ssoUser     string
	metricsAddr string
	logLevel    string
	logFormat   string
}

type stores struct {
	creds   kv.Store[string, credential.Credentials]
	users   kv.Store[string, map[string]availability.UserAvailability]
	cleanup func()
}

func main() {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	pflag.StringVar(&opts.store, "store", "memory", "persistence backend: memory, badger or redis")
	pflag.StringVar(&opts.dataDir, "data-dir", "", "badger directory (default: temp dir)")
	pflag.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; empty uses REDIS_ADDR or an embedded miniredis")
	pflag.StringVarP(&opts.tenant, "tenant", "t", "demo", "tenant id to prepare")
	pflag.StringVar(&opts.ssoUser, "sso-user", "sim-user", "user id the backend logs in through SSO")
	pflag.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics here and keep running after the scenario")
	pflag.StringVar(&opts.logLevel, "log-level", "", "override logging level")
	pflag.StringVar(&opts.logFormat, "log-format", "console", "json or console")
	pflag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "gosession-sim: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := goSession.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	cfg.Logging.Format = opts.logFormat
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	st, err := openStores(opts, logger)
	if err != nil {
		return err
	}
	defer st.cleanup()

	api := newBackend(opts.ssoUser)
	apiURL, shutdownAPI, err := serve("127.0.0.1:0", api.routes())
	if err != nil {
		return fmt.Errorf("start backend: %w", err)
	}
	defer shutdownAPI()
	logger.Info().Str("url", apiURL).Msg("backend listening")

	var manager *goSession.Manager
	client, err := httpgateway.New(httpgateway.Options{
		BaseURL:     apiURL,
		HeaderNames: cfg.Headers,
		Credentials: func() credential.Credentials { return manager.Credentials() },
		TenantID:    func() string { return manager.TenantID() },
		OnResponse: func(resp *gateway.Response) {
			if err := manager.UpdateNetworkCredentials(ctx, resp.Header); err != nil {
				logger.Warn().Err(err).Msg("apply response credentials failed")
			}
		},
		OnUnauthorized: func() {
			if err := manager.EnterAuthenticationRecoveryState(ctx); err != nil {
				logger.Warn().Err(err).Msg("enter recovery failed")
			}
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	manager, err = goSession.New().
		WithConfig(cfg).
		WithGateway(client).
		WithPolicySource(policy.NewStaticSource(map[string]policy.TenantPolicy{
			opts.tenant: policy.DefaultTenantPolicy(),
		})).
		WithPresenter(&autoPresenter{
			logger:  logger,
			manager: func() *goSession.Manager { return manager },
		}).
		WithCredentialStore(st.creds).
		WithAvailabilityStore(st.users).
		WithEventSink(goSession.NewJSONWriterSink(os.Stdout)).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer manager.Close()

	statuses, cancel := manager.StatusStream()
	defer cancel()
	go func() {
		for s := range statuses {
			logger.Info().Stringer("status", s).Msg("status")
		}
	}()

	if err := scenario(ctx, opts.tenant, manager, client, api, logger); err != nil {
		return err
	}

	snap := manager.MetricsSnapshot()
	logger.Info().
		Uint64("transitions", snap.Counters[goSession.MetricStatusTransition]).
		Uint64("recoveries", snap.Counters[goSession.MetricRecoverySucceeded]).
		Uint64("bootstrap_attempts", snap.Counters[goSession.MetricBootstrapAttempt]).
		Msg("scenario complete")

	if opts.metricsAddr == "" {
		return nil
	}
	r := chi.NewRouter()
	r.Handle("/metrics", promexport.NewExporter(manager).Handler())
	addr, shutdownMetrics, err := serve(opts.metricsAddr, r)
	if err != nil {
		return fmt.Errorf("start metrics: %w", err)
	}
	defer shutdownMetrics()
	logger.Info().Str("url", addr+"/metrics").Msg("serving metrics until interrupted")
	<-ctx.Done()
	return nil
}

func scenario(ctx context.Context, tenant string, m *goSession.Manager, client *httpgateway.Client, api *backend, logger zerolog.Logger) error {
	if err := m.Prepare(ctx, tenant); err != nil {
		return fmt.Errorf("prepare: %w", err)
	}

	shown, err := m.IfNeededTriggerAuthenticationUI(ctx, goSession.ActionVote)
	if err != nil {
		return err
	}
	logger.Info().Bool("login_ui", shown).Msg("vote requested")

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.WaitForAuthenticationDefault(waitCtx, goSession.ActionVote); err != nil {
		return fmt.Errorf("wait for vote level: %w", err)
	}

	statuses, unsubscribe := m.StatusStream()
	defer unsubscribe()

	logger.Info().Msg("revoking every session on the backend")
	api.revokeAll()
	if _, _, err := client.FetchUser(ctx); err == nil {
		return errors.New("expected the revoked session to be rejected")
	}

	for {
		select {
		case s, ok := <-statuses:
			if !ok {
				return goSession.ErrManagerClosed
			}
			switch s.Kind {
			case goSession.StatusSSORecoveredSuccessfully:
				logger.Info().Str("user", s.UserID).Msg("session recovered")
				return nil
			case goSession.StatusSSOFailedRecover:
				return fmt.Errorf("recovery of %s failed", s.UserID)
			}
		case <-waitCtx.Done():
			return fmt.Errorf("wait for recovery: %w", waitCtx.Err())
		}
	}
}

func openStores(opts options, logger zerolog.Logger) (stores, error) {
	switch opts.store {
	case "memory":
		return stores{
			creds:   kv.NewMemory[string, credential.Credentials](),
			users:   kv.NewMemory[string, map[string]availability.UserAvailability](),
			cleanup: func() {},
		}, nil

	case "badger":
		dir := opts.dataDir
		if dir == "" {
			tmp, err := os.MkdirTemp("", "gosession-sim-*")
			if err != nil {
				return stores{}, err
			}
			dir = tmp
		}
		db, err := badgerstore.Open(dir)
		if err != nil {
			return stores{}, fmt.Errorf("open badger: %w", err)
		}
		logger.Info().Str("dir", dir).Msg("using badger store")
		return stores{
			creds:   badgerstore.New[string, credential.Credentials](db),
			users:   badgerstore.New[string, map[string]availability.UserAvailability](db),
			cleanup: func() { _ = db.Close() },
		}, nil

	case "redis":
		addr := opts.redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		var mr *miniredis.Miniredis
		if addr == "" {
			var err error
			mr, err = miniredis.Run()
			if err != nil {
				return stores{}, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
			logger.Info().Str("addr", addr).Msg("using miniredis")
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		return stores{
			creds: redisstore.New[string, credential.Credentials](client, "gosession-sim"),
			users: redisstore.New[string, map[string]availability.UserAvailability](client, "gosession-sim"),
			cleanup: func() {
				_ = client.Close()
				if mr != nil {
					mr.Close()
				}
			},
		}, nil
	}
	return stores{}, fmt.Errorf("unknown store %q", opts.store)
}

// serve starts h on addr and returns its base URL and a shutdown func.
func serve(addr string, h http.Handler) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	return "http://" + ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
