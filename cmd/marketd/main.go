package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/honehone12/token-objects-marketplace/audit"
	"github.com/honehone12/token-objects-marketplace/config"
	"github.com/honehone12/token-objects-marketplace/core"
	"github.com/honehone12/token-objects-marketplace/core/events"
	"github.com/honehone12/token-objects-marketplace/crypto"
	"github.com/honehone12/token-objects-marketplace/native/assets"
	"github.com/honehone12/token-objects-marketplace/native/market"
	"github.com/honehone12/token-objects-marketplace/observability"
	"github.com/honehone12/token-objects-marketplace/observability/logging"
	"github.com/honehone12/token-objects-marketplace/observability/otel"
	"github.com/honehone12/token-objects-marketplace/rpc"
	"github.com/honehone12/token-objects-marketplace/storage"
)

const seedMarkerFile = "seed.applied"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("marketd", logging.Options{
		Level:      cfg.Log.Level,
		Path:       cfg.Log.Path,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.OTLPEndpoint,
			Insecure:    true,
			Metrics:     true,
			Traces:      true,
		})
		if err != nil {
			logger.Error("Failed to initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutCtx); err != nil {
				logger.Error("Telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	host, err := crypto.DecodeAddress(cfg.HostAddress)
	if err != nil {
		logger.Error("Invalid host address", slog.Any("error", err))
		os.Exit(1)
	}
	vault, err := crypto.DecodeAddress(cfg.VaultAddress)
	if err != nil {
		logger.Error("Invalid vault address", slog.Any("error", err))
		os.Exit(1)
	}
	fee, err := cfg.MarketFee()
	if err != nil {
		logger.Error("Invalid market fee", slog.Any("error", err))
		os.Exit(1)
	}
	mkt := market.Market{
		Host:   host.Array(),
		Fee:    fee,
		Policy: cfg.MarketPolicy(),
	}

	emitter := events.MultiEmitter{observability.NewMetricsEmitter()}
	var exporter *audit.Exporter
	if cfg.Audit.Enabled {
		exporter = audit.NewExporter(cfg.Audit.Dir, logger)
		emitter = append(emitter, exporter)
	}

	node, err := core.NewNode(db, mkt, vault.Array(), emitter)
	if err != nil {
		logger.Error("Failed to initialise node", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.SeedFile != "" {
		if err := applySeed(node, cfg, logger); err != nil {
			logger.Error("Failed to apply seed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	if exporter != nil {
		interval := time.Duration(cfg.Audit.IntervalSeconds) * time.Second
		go exporter.Run(ctx, interval)
	}

	var secret []byte
	if env := strings.TrimSpace(cfg.Auth.JWTSecretEnv); env != "" {
		if value := strings.TrimSpace(os.Getenv(env)); value != "" {
			secret = []byte(value)
		} else {
			logger.Warn("JWT secret environment variable unset, RPC auth disabled", slog.String("env", env))
		}
	}

	server := rpc.NewServer(node, rpc.Config{
		JWTSecret:       secret,
		AllowUnauthRead: cfg.Auth.AllowUnauthRead,
		RatePerSecond:   cfg.Auth.RatePerSecond,
		RateBurst:       cfg.Auth.RateBurst,
	}, logger)

	logger.Info("Starting RPC server", slog.String("addr", cfg.RPCAddress))
	if err := server.Serve(ctx, cfg.RPCAddress); err != nil {
		logger.Error("RPC server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// applySeed funds the configured accounts and registers the configured
// objects exactly once. A marker file in the data directory prevents the
// additive account credits from repeating across restarts.
func applySeed(node *core.Node, cfg *config.Config, logger *slog.Logger) error {
	marker := filepath.Join(cfg.DataDir, seedMarkerFile)
	if _, err := os.Stat(marker); err == nil {
		logger.Info("Seed already applied, skipping", slog.String("seed", cfg.SeedFile))
		return nil
	}

	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		return err
	}
	for _, acc := range seed.Accounts {
		addr, err := crypto.DecodeAddress(acc.Address)
		if err != nil {
			return err
		}
		amount, err := acc.Amount()
		if err != nil {
			return err
		}
		if err := node.SeedAccount(addr.Array(), amount); err != nil {
			return err
		}
	}
	for _, obj := range seed.Objects {
		addr, err := crypto.DecodeAddress(obj.Address)
		if err != nil {
			return err
		}
		owner, err := crypto.DecodeAddress(obj.Owner)
		if err != nil {
			return err
		}
		royalty, err := obj.Fraction()
		if err != nil {
			return err
		}
		if err := node.RegisterObject(&assets.Object{
			Address: addr.Array(),
			Kind:    obj.Kind,
			Owner:   owner.Array(),
			Royalty: royalty,
		}); err != nil {
			return err
		}
	}
	logger.Info("Applied seed",
		slog.Int("accounts", len(seed.Accounts)),
		slog.Int("objects", len(seed.Objects)))
	return os.WriteFile(marker, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644)
}
