package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paw-chain/pawdex/api"
	"github.com/paw-chain/pawdex/pkg/journal"
	"github.com/paw-chain/pawdex/pkg/sandbox"
	"github.com/paw-chain/pawdex/pkg/telemetry"
	"github.com/paw-chain/pawdex/x/dex/types"
)

const (
	flagHost            = "host"
	flagPort            = "port"
	flagJWTSecret       = "jwt-secret"
	flagCORSOrigins     = "cors-origins"
	flagRateLimit       = "rate-limit"
	flagGenesis         = "genesis"
	flagAuthority       = "authority"
	flagTelemetry       = "telemetry"
	flagOTLPEndpoint    = "otlp-endpoint"
	flagSampleRate      = "sample-rate"
	flagEnvironment     = "environment"
	flagJournalDSN      = "journal-dsn"
	flagJournalTable    = "journal-table"
	flagJournalCapacity = "journal-capacity"
)

// NewServeCmd serves the HTTP API over a fresh sandbox.
func NewServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dex HTTP API over an in-memory pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v, cmd)
		},
	}

	defaults := api.DefaultConfig()
	f := cmd.Flags()
	f.String(flagHost, defaults.Host, "listen host")
	f.String(flagPort, defaults.Port, "listen port")
	f.String(flagJWTSecret, "", "HMAC secret for API tokens (at least 16 bytes)")
	f.StringSlice(flagCORSOrigins, defaults.CORSOrigins, "allowed CORS origins")
	f.Int(flagRateLimit, defaults.RateLimitRPS, "requests per second per client IP")
	f.String(flagGenesis, "", "genesis JSON file loaded before serving")
	f.String(flagAuthority, "", "address allowed to recover stray tokens")
	f.Bool(flagTelemetry, false, "export traces over OTLP and metrics to Prometheus")
	f.String(flagOTLPEndpoint, "localhost:4318", "OTLP HTTP collector endpoint")
	f.Float64(flagSampleRate, 1.0, "trace sample rate between 0 and 1")
	f.String(flagEnvironment, "development", "deployment environment reported with traces")
	f.String(flagJournalDSN, "", "postgres DSN for the event journal")
	f.String(flagJournalTable, "dex_journal", "postgres table for the event journal")
	f.Int(flagJournalCapacity, 10000, "entries kept by the in-memory journal")
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper, cmd *cobra.Command) error {
	logger, err := newLogger(v, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	policy, err := policyFromConfig(v)
	if err != nil {
		return err
	}

	tp, err := telemetry.NewProvider(telemetry.Config{
		Enabled:           v.GetBool(flagTelemetry),
		OTLPEndpoint:      v.GetString(flagOTLPEndpoint),
		SampleRate:        v.GetFloat64(flagSampleRate),
		Environment:       v.GetString(flagEnvironment),
		PrometheusEnabled: v.GetBool(flagTelemetry),
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown", "error", err)
		}
	}()

	sinks := []journal.Sink{journal.NewMemorySink(v.GetInt(flagJournalCapacity))}
	if dsn := v.GetString(flagJournalDSN); dsn != "" {
		pg, err := journal.OpenPostgres(ctx, dsn, v.GetString(flagJournalTable))
		if err != nil {
			return err
		}
		defer pg.Close()
		sinks = append(sinks, pg)
	}

	sb, err := sandbox.New(sandbox.Config{
		Policy:    policy,
		Authority: v.GetString(flagAuthority),
		Logger:    logger,
		Telemetry: tp,
		Sinks:     sinks,
	})
	if err != nil {
		return err
	}

	if path := v.GetString(flagGenesis); path != "" {
		if err := loadGenesis(ctx, sb, path); err != nil {
			return err
		}
		logger.Info("genesis loaded", "file", path, "height", sb.Height())
	}

	secret := v.GetString(flagJWTSecret)
	if secret == "" {
		return errors.New("--jwt-secret (or PAWDEX_JWT_SECRET) is required")
	}
	config := api.DefaultConfig()
	config.Host = v.GetString(flagHost)
	config.Port = v.GetString(flagPort)
	config.JWTSecret = []byte(secret)
	config.CORSOrigins = v.GetStringSlice(flagCORSOrigins)
	config.RateLimitRPS = v.GetInt(flagRateLimit)

	server, err := api.NewServer(sb, config, logger)
	if err != nil {
		return err
	}
	logger.Info("serving dex", "policy", policy.String(), "addr", config.Host+":"+config.Port)
	return server.Start(ctx)
}

func loadGenesis(ctx context.Context, sb *sandbox.Sandbox, path string) error {
	bz, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read genesis: %w", err)
	}
	gs, err := types.ParseGenesis(bz)
	if err != nil {
		return err
	}
	return sb.InitGenesis(ctx, *gs)
}
