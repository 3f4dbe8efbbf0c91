package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paw-chain/pawdex/x/dex/types"
)

const testScenario = `
policy: fee-bearing
accounts:
  alice: {uatom: 1000000, uusdc: 1000000}
  bob: {uatom: 1000000, uusdc: 1000000}
steps:
  - {op: deposit, actor: alice, token_a: uatom, token_b: uusdc, amount_a: 1000, amount_b: 4000}
  - {op: swap, actor: bob, token_a: uatom, token_b: uusdc, amount: 100, min_b: 362}
  - {op: swap, actor: bob, token_a: uatom, token_b: uusdc, amount: 100, min_b: 1000, expect_error: insufficient output amount}
  - {op: transfer, actor: alice, counterpart: carol, amount: 500}
  - {op: withdraw, actor: carol, token_a: uusdc, token_b: uatom, shares: 500}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestQuoteCmd(t *testing.T) {
	out, err := execute(t, "quote", "100", "1000", "4000", "-o", "json")
	require.NoError(t, err)

	var q quoteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	require.Equal(t, "362", q.AmountOut)
	require.Equal(t, "fee-bearing", q.Policy)
	require.Equal(t, "4.000000000000000000", q.PriceBefore)

	out, err = execute(t, "quote", "100", "1000", "4000", "--policy", "feeless")
	require.NoError(t, err)
	require.Contains(t, out, "100 in -> 363 out (feeless)")
}

func TestQuoteCmdPolicyFromEnv(t *testing.T) {
	t.Setenv("PAWDEX_POLICY", "feeless")

	out, err := execute(t, "quote", "100", "1000", "4000", "-o", "json")
	require.NoError(t, err)
	var q quoteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	require.Equal(t, "363", q.AmountOut)
}

func TestQuoteCmdErrors(t *testing.T) {
	_, err := execute(t, "quote", "ten", "1000", "4000")
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = execute(t, "quote", "0", "1000", "4000")
	require.ErrorIs(t, err, types.ErrZeroInput)

	_, err = execute(t, "quote", "100", "1000", "4000", "--policy", "blended")
	require.ErrorIs(t, err, types.ErrInvalidPolicy)

	_, err = execute(t, "quote", "100", "1000", "4000", "-o", "xml")
	require.Error(t, err)
}

func TestSimulateCmd(t *testing.T) {
	path := writeFile(t, "scenario.yaml", testScenario)

	out, err := execute(t, "simulate", path, "-o", "json")
	require.NoError(t, err)

	var report SimulationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "fee-bearing", report.Policy)
	require.Len(t, report.Steps, 5)
	require.Equal(t, "2000", report.Steps[0].Result["shares"])
	require.Equal(t, "362", report.Steps[1].Result["amount_out"])
	require.Contains(t, report.Steps[2].Error, "insufficient output amount")
	require.Equal(t, report.Steps[1].Height, report.Steps[2].Height)
	require.Equal(t, "909", report.Steps[4].Result["amount_a"])
	require.Equal(t, "275", report.Steps[4].Result["amount_b"])

	require.Len(t, report.Pairs, 1)
	require.Equal(t, "825", report.Pairs[0].Reserves.Low.String())
	require.Equal(t, "2729", report.Pairs[0].Reserves.High.String())

	require.Equal(t, "1500", report.Shares["alice"])
	require.Equal(t, "0", report.Shares["carol"])
	require.Equal(t, "275", report.Balances["carol"]["uatom"])
	require.Equal(t, "909", report.Balances["carol"]["uusdc"])
	require.Equal(t, "1000362", report.Balances["bob"]["uusdc"])
	require.Positive(t, report.Events)

	out, err = execute(t, "simulate", path)
	require.NoError(t, err)
	require.Contains(t, out, "uatom/uusdc: 825uatom 2729uusdc")
}

func TestSimulateCmdUnexpectedFailureAborts(t *testing.T) {
	path := writeFile(t, "scenario.yaml", `
accounts:
  alice: {uatom: 10, uusdc: 10}
steps:
  - {op: deposit, actor: alice, token_a: uatom, token_b: uusdc, amount_a: 1000, amount_b: 4000}
`)
	_, err := execute(t, "simulate", path)
	require.ErrorIs(t, err, types.ErrTransferFailed)
}

func TestLoadScenarioRejectsBadSteps(t *testing.T) {
	for name, content := range map[string]string{
		"unknown op":    "steps:\n  - {op: mint, actor: alice}\n",
		"missing actor": "steps:\n  - {op: deposit, token_a: a, token_b: b}\n",
		"bad amount":    "steps:\n  - {op: swap, actor: a, token_a: x, token_b: y, amount: lots}\n",
		"no steps":      "policy: feeless\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(writeFile(t, "scenario.yaml", content))
			require.Error(t, err)
		})
	}
}

func TestGenesisCommands(t *testing.T) {
	scenario := writeFile(t, "scenario.yaml", testScenario)

	out, err := execute(t, "genesis", "export", scenario)
	require.NoError(t, err)
	gs, err := types.ParseGenesis([]byte(out))
	require.NoError(t, err)
	require.Equal(t, types.PolicyFeeBearing, gs.Policy)
	total, err := gs.TotalShares()
	require.NoError(t, err)
	require.Equal(t, "1500", total.String())

	genesisFile := writeFile(t, "genesis.json", out)
	out, err = execute(t, "genesis", "validate", genesisFile)
	require.NoError(t, err)
	require.Contains(t, out, "valid fee-bearing genesis: 1 pairs, 1 holders")

	out, err = execute(t, "genesis", "default", "--policy", "feeless")
	require.NoError(t, err)
	gs, err = types.ParseGenesis([]byte(out))
	require.NoError(t, err)
	require.Equal(t, types.PolicyFeeless, gs.Policy)
	require.Empty(t, gs.Reserves)
}

func TestGenesisValidateRejectsBrokenInvariant(t *testing.T) {
	// reserves without any shares outstanding
	path := writeFile(t, "genesis.json", `{
  "policy": "fee-bearing",
  "reserves": [{"pair": {"low": "uatom", "high": "uusdc"}, "reserves": {"low": "10", "high": "10"}}],
  "balances": [],
  "allowances": []
}`)
	_, err := execute(t, "genesis", "validate", path)
	require.Error(t, err)
}
