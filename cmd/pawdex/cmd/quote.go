package cmd

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paw-chain/pawdex/x/dex/types"
)

type quoteOutput struct {
	Policy      string `json:"policy"`
	AmountIn    string `json:"amount_in"`
	ReserveIn   string `json:"reserve_in"`
	ReserveOut  string `json:"reserve_out"`
	AmountOut   string `json:"amount_out"`
	PriceBefore string `json:"price_before"`
	PriceAfter  string `json:"price_after"`
}

// NewQuoteCmd prices a swap against explicit reserves without any state.
func NewQuoteCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "quote [amount-in] [reserve-in] [reserve-out]",
		Short: "Compute the output of a swap against the given reserves",
		Example: `pawdex quote 100 1000 4000
pawdex quote 100 1000 4000 --policy feeless -o json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := policyFromConfig(v)
			if err != nil {
				return err
			}

			amounts := make([]math.Int, len(args))
			for i, arg := range args {
				amount, ok := math.NewIntFromString(arg)
				if !ok {
					return types.ErrInvalidAmount.Wrapf("%q is not an integer", arg)
				}
				amounts[i] = amount
			}
			amountIn, reserveIn, reserveOut := amounts[0], amounts[1], amounts[2]

			out, err := types.ComputeOutput(policy, amountIn, reserveIn, reserveOut)
			if err != nil {
				return err
			}
			before, err := types.ComputePrice(reserveIn, reserveOut)
			if err != nil {
				return err
			}
			after, err := types.ComputePrice(reserveIn.Add(amountIn), reserveOut.Sub(out))
			if err != nil {
				return err
			}

			res := quoteOutput{
				Policy:      policy.String(),
				AmountIn:    amountIn.String(),
				ReserveIn:   reserveIn.String(),
				ReserveOut:  reserveOut.String(),
				AmountOut:   out.String(),
				PriceBefore: types.PriceToDec(before).String(),
				PriceAfter:  types.PriceToDec(after).String(),
			}
			return printOutput(cmd, v, res, func() string {
				return fmt.Sprintf("%s in -> %s out (%s)\nprice %s -> %s\n",
					res.AmountIn, res.AmountOut, res.Policy, res.PriceBefore, res.PriceAfter)
			})
		},
	}
}

// printOutput writes obj as indented JSON or the text rendering, per --output.
func printOutput(cmd *cobra.Command, v *viper.Viper, obj any, text func() string) error {
	if v.GetString(flagOutput) == "json" {
		return writeJSON(cmd, obj)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), text())
	return err
}

// writeJSON writes obj as indented JSON regardless of --output. Genesis
// documents are always JSON.
func writeJSON(cmd *cobra.Command, obj any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(obj)
}
