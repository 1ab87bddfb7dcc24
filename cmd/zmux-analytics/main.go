package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edirooss/zmux-analytics/internal/client/ptz"
	"github.com/edirooss/zmux-analytics/internal/client/recorder"
	"github.com/edirooss/zmux-analytics/internal/config"
	"github.com/edirooss/zmux-analytics/internal/dispatcher"
	"github.com/edirooss/zmux-analytics/internal/gateway"
	"github.com/edirooss/zmux-analytics/internal/http/server"
	"github.com/edirooss/zmux-analytics/internal/service"
	"github.com/edirooss/zmux-analytics/internal/stream"
	"github.com/edirooss/zmux-analytics/pkg/hostutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

type flags struct {
	configPath string
	host       string
	port       int
	configFile string
	version    bool
}

func parseFlags() *flags {
	f := &flags{}
	flag.StringVar(&f.configPath, "config", "zmux-analytics.yaml", "server configuration file (YAML)")
	flag.StringVar(&f.host, "host", "", "HTTP listen host (default 127.0.0.1)")
	flag.IntVar(&f.port, "port", 0, "HTTP listen port (default 5040)")
	flag.StringVar(&f.configFile, "config-file", "", "analytics configuration file (JSON), watched for changes")
	flag.BoolVar(&f.version, "v", false, "print version and exit")
	flag.BoolVar(&f.version, "version", false, "print version and exit")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if f.version {
		fmt.Printf("zmux-analytics %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if f.host != "" {
		if err := hostutil.ValidateHost(f.host); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -host: %v\n", err)
			os.Exit(2)
		}
		cfg.HTTP.Host = f.host
	}
	if f.port != 0 {
		cfg.HTTP.Port = f.port
	}
	if f.configFile != "" {
		cfg.ConfigFile = f.configFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}
	isDev := cfg.Dev || os.Getenv("ENV") == "dev"

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg, isDev); err != nil {
		log.Fatal("service failed", zap.Error(err))
	}
	log.Info("service stopped")
}

func run(ctx context.Context, log *zap.Logger, cfg *config.Config, isDev bool) error {
	src, err := buildSource(log, cfg.Stream)
	if err != nil {
		return err
	}
	defer src.Close()

	gw := gateway.New(log)
	h := dispatcher.New(log, src, gw, dispatcher.Options{
		BlockTimeout: cfg.Stream.BlockTimeout,
		NewRecorder: func(uri string) (dispatcher.Recorder, error) {
			return recorder.New(uri, cfg.Recorder.Timeout), nil
		},
		NewPTZ: ptzFactory(cfg.PTZ),
	})

	var cfgsync *service.ConfigSyncService
	if cfg.ConfigFile != "" {
		cfgsync = service.NewConfigSyncService(log, gw, cfg.ConfigFile, 0)
		if initial, ok := cfgsync.Boot(); ok {
			h.Prime(initial)
		}
	}

	router := server.NewRouter(log, gw, server.Options{
		Dev:            isDev,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	httpsrv := server.NewHTTPServer(cfg.Addr(), router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("running HTTP server", zap.String("addr", httpsrv.Addr))
		if err := httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpsrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if err := h.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfgsync != nil {
		g.Go(func() error { return cfgsync.Watch(gctx) })
	}

	return g.Wait()
}

func buildSource(log *zap.Logger, c config.StreamConfig) (stream.Source, error) {
	switch c.Driver {
	case stream.DriverNATS:
		return stream.NewNATSSource(log, c.NATSURL, c.NATSSubject)
	default:
		// Unreachable at boot is not fatal: the client logs the failed ping
		// and reads retry with back-off.
		rdb := stream.NewRedisClient(log, c.RedisAddr, c.RedisDB)
		return stream.NewRedisSource(log, rdb, c.RedisStream), nil
	}
}

func ptzFactory(c config.PTZConfig) dispatcher.PTZFactory {
	if c.Driver == ptz.DriverONVIF {
		opts := ptz.ONVIFOptions{
			User:         c.ONVIFUser,
			Password:     c.ONVIFPassword,
			ProfileToken: c.ONVIFProfileToken,
			MaxZoom:      c.ONVIFMaxZoom,
			Timeout:      c.Timeout,
		}
		return func(host string, port int) (ptz.Client, error) {
			return ptz.NewONVIFClient(host, port, opts)
		}
	}
	return func(host string, port int) (ptz.Client, error) {
		return ptz.NewHTTPClient(host, port, c.Timeout), nil
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(lvl)
	return logConfig.Build()
}
