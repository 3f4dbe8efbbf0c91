package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/paw-chain/pawdex/x/dex/types"
)

const (
	envPrefix = "PAWDEX"

	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagPolicy    = "policy"
	flagOutput    = "output"
)

// NewRootCmd creates the pawdex root command. Every flag can also be set from
// the config file or from a PAWDEX_ prefixed environment variable.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:           "pawdex",
		Short:         "Constant product AMM engine",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String(flagConfig, "", "config file (yaml, toml or json)")
	pf.String(flagLogLevel, "info", "log level, optionally per module (e.g. \"info,x/dex:debug\")")
	pf.String(flagLogFormat, "plain", "log format (plain|json)")
	pf.String(flagPolicy, types.DefaultPolicy.String(), "fee policy (fee-bearing|feeless)")
	pf.StringP(flagOutput, "o", "text", "output format (text|json)")

	rootCmd.AddCommand(
		NewQuoteCmd(v),
		NewSimulateCmd(v),
		NewServeCmd(v),
		NewGenesisCmd(v),
	)
	return rootCmd
}

// initConfig binds flags, environment and the optional config file into v.
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return bindErr
	}

	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	switch v.GetString(flagOutput) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output format %q", v.GetString(flagOutput))
	}
	return nil
}

// newLogger builds the process logger from the log flags.
func newLogger(v *viper.Viper, out io.Writer) (log.Logger, error) {
	filter, err := log.ParseLogLevel(v.GetString(flagLogLevel))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	opts := []log.Option{log.FilterOption(filter)}
	switch v.GetString(flagLogFormat) {
	case "json":
		opts = append(opts, log.OutputJSONOption())
	case "plain", "":
	default:
		return nil, errors.New("log format must be plain or json")
	}
	return log.NewLogger(out, opts...), nil
}

func policyFromConfig(v *viper.Viper) (types.Policy, error) {
	return types.ParsePolicy(v.GetString(flagPolicy))
}
