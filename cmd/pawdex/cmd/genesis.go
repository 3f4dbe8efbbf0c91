package cmd

import (
	"fmt"
	"os"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paw-chain/pawdex/pkg/sandbox"
	"github.com/paw-chain/pawdex/x/dex/types"
)

// NewGenesisCmd groups the genesis helpers.
func NewGenesisCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Create, validate and export dex genesis documents",
	}
	cmd.AddCommand(
		newGenesisDefaultCmd(v),
		newGenesisValidateCmd(v),
		newGenesisExportCmd(v),
	)
	return cmd
}

func newGenesisDefaultCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Print an empty genesis for the configured policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := policyFromConfig(v)
			if err != nil {
				return err
			}
			gs := types.DefaultGenesis()
			gs.Policy = policy
			return writeJSON(cmd, gs)
		},
	}
}

func newGenesisValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [genesis-file]",
		Short: "Check a genesis file and load it into a scratch pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bz, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			gs, err := types.ParseGenesis(bz)
			if err != nil {
				return err
			}

			// Loading also runs the invariants, which static validation cannot.
			sb, err := sandbox.New(sandbox.Config{Policy: gs.Policy})
			if err != nil {
				return err
			}
			if err := sb.InitGenesis(cmd.Context(), *gs); err != nil {
				return err
			}

			total, err := gs.TotalShares()
			if err != nil {
				return err
			}
			summary := map[string]any{
				"policy":       gs.Policy.String(),
				"pairs":        len(gs.Reserves),
				"holders":      len(gs.Balances),
				"allowances":   len(gs.Allowances),
				"total_shares": total.String(),
			}
			return printOutput(cmd, v, summary, func() string {
				return fmt.Sprintf("valid %s genesis: %d pairs, %d holders, %d allowances, %s shares\n",
					gs.Policy, len(gs.Reserves), len(gs.Balances), len(gs.Allowances), total)
			})
		},
	}
}

func newGenesisExportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "export [scenario-file]",
		Short: "Run a scenario and print the resulting state as genesis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			scenario, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			if scenario.Policy == types.PolicyUnspecified {
				if scenario.Policy, err = policyFromConfig(v); err != nil {
					return err
				}
			}

			clock := NewStepClock(scenario.Start, scenario.Interval)
			sb, err := sandbox.New(sandbox.Config{Policy: scenario.Policy, Now: clock.Now, Logger: logger})
			if err != nil {
				return err
			}
			if _, err := RunScenario(cmd.Context(), sb, scenario, clock); err != nil {
				return err
			}

			var gs *types.GenesisState
			err = sb.Query(cmd.Context(), func(ctx sdk.Context) error {
				var err error
				gs, err = sb.Keeper().ExportGenesis(ctx)
				return err
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd, gs)
		},
	}
}

