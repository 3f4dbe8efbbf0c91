package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cosmossdk.io/math"
	"github.com/cometbft/cometbft/crypto/tmhash"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paw-chain/pawdex/pkg/journal"
	"github.com/paw-chain/pawdex/pkg/sandbox"
	"github.com/paw-chain/pawdex/x/dex/types"
)

// defaultStepInterval is the block time advance between scenario steps.
const defaultStepInterval = 5 * time.Second

// Scenario is a scripted sequence of dex operations run in a fresh sandbox.
type Scenario struct {
	Policy   types.Policy
	Start    time.Time
	Interval time.Duration
	Accounts map[string]sdk.Coins
	Steps    []Step
}

// ActorAddress is the account a scenario name stands for.
func ActorAddress(name string) sdk.AccAddress {
	return sdk.AccAddress(tmhash.SumTruncated([]byte("pawdex/actor/" + strings.ToLower(name))))
}

// Step is one scenario operation. Actors are account names resolved with
// ActorAddress.
type Step struct {
	Op          string
	Actor       string
	TokenA      string
	TokenB      string
	AmountA     math.Int
	AmountB     math.Int
	MinA        math.Int
	MinB        math.Int
	Shares      math.Int
	Amount      math.Int
	Counterpart string
	Recipient   string
	Deadline    time.Duration
	ExpectError string
}

// StepResult is what a step did, or the error it failed with.
type StepResult struct {
	Index  int               `json:"index"`
	Op     string            `json:"op"`
	Actor  string            `json:"actor"`
	Height int64             `json:"height"`
	Result map[string]string `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// SimulationReport is the final state of a simulation.
type SimulationReport struct {
	Policy   string                       `json:"policy"`
	Steps    []StepResult                 `json:"steps"`
	Pairs    []types.PairReserves         `json:"pairs"`
	Shares   map[string]string            `json:"shares"`
	Balances map[string]map[string]string `json:"balances"`
	Events   int                          `json:"events"`
}

// NewSimulateCmd runs a scenario file through a sandbox.
func NewSimulateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate [scenario-file]",
		Short: "Run a scripted scenario against an in-memory pool",
		Long: `Run a scripted scenario against an in-memory pool.

The scenario file (yaml, toml or json) funds named accounts and lists steps:

  policy: feeless
  accounts:
    alice: {uatom: 1000000, uusdc: 1000000}
  steps:
    - {op: deposit, actor: alice, token_a: uatom, token_b: uusdc, amount_a: 1000, amount_b: 4000}
    - {op: swap, actor: alice, token_a: uatom, token_b: uusdc, amount: 100, min_b: 0}
    - {op: withdraw, actor: alice, token_a: uatom, token_b: uusdc, shares: 500}

A step with expect_error set must fail with an error containing that text.`,
		Args: cobra.ExactArgs(1),
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

			sink := journal.NewMemorySink(0)
			clock := NewStepClock(scenario.Start, scenario.Interval)
			sb, err := sandbox.New(sandbox.Config{
				Policy: scenario.Policy,
				Now:    clock.Now,
				Logger: logger,
				Sinks:  []journal.Sink{sink},
			})
			if err != nil {
				return err
			}

			report, err := RunScenario(cmd.Context(), sb, scenario, clock)
			if err != nil {
				return err
			}
			report.Events = len(sink.Entries())

			return printOutput(cmd, v, report, func() string { return report.String() })
		},
	}
}

// LoadScenario reads a scenario file. Amounts may be written as numbers or
// decimal strings.
func LoadScenario(path string) (*Scenario, error) {
	sv := viper.New()
	sv.SetConfigFile(path)
	if err := sv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	scenario := &Scenario{
		Start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval: defaultStepInterval,
		Accounts: make(map[string]sdk.Coins),
	}
	if s := sv.GetString("policy"); s != "" {
		policy, err := types.ParsePolicy(s)
		if err != nil {
			return nil, err
		}
		scenario.Policy = policy
	}
	if sv.IsSet("start") {
		start, err := cast.ToTimeE(sv.Get("start"))
		if err != nil {
			return nil, fmt.Errorf("scenario start: %w", err)
		}
		scenario.Start = start.UTC()
	}
	if sv.IsSet("interval") {
		interval, err := cast.ToDurationE(sv.Get("interval"))
		if err != nil {
			return nil, fmt.Errorf("scenario interval: %w", err)
		}
		scenario.Interval = interval
	}

	for name, raw := range sv.GetStringMap("accounts") {
		denoms, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", name, err)
		}
		coins := sdk.NewCoins()
		for denom, amount := range denoms {
			amt, err := toInt(amount)
			if err != nil {
				return nil, fmt.Errorf("account %s %s: %w", name, denom, err)
			}
			coin := sdk.Coin{Denom: denom, Amount: amt}
			if err := coin.Validate(); err != nil {
				return nil, fmt.Errorf("account %s: %w", name, err)
			}
			coins = coins.Add(coin)
		}
		scenario.Accounts[name] = coins
	}

	rawSteps, err := cast.ToSliceE(sv.Get("steps"))
	if err != nil {
		return nil, fmt.Errorf("scenario steps: %w", err)
	}
	for i, raw := range rawSteps {
		fields, err := cast.ToStringMapE(raw)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		step, err := parseStep(fields)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		scenario.Steps = append(scenario.Steps, step)
	}
	if len(scenario.Steps) == 0 {
		return nil, errors.New("scenario has no steps")
	}
	return scenario, nil
}

func parseStep(fields map[string]interface{}) (Step, error) {
	step := Step{
		Op:          strings.ToLower(cast.ToString(fields["op"])),
		Actor:       cast.ToString(fields["actor"]),
		TokenA:      cast.ToString(fields["token_a"]),
		TokenB:      cast.ToString(fields["token_b"]),
		Counterpart: cast.ToString(fields["counterpart"]),
		Recipient:   cast.ToString(fields["recipient"]),
		ExpectError: cast.ToString(fields["expect_error"]),
		Deadline:    time.Hour,
	}
	if step.Actor == "" {
		return Step{}, errors.New("actor is required")
	}

	amounts := map[string]*math.Int{
		"amount_a": &step.AmountA,
		"amount_b": &step.AmountB,
		"min_a":    &step.MinA,
		"min_b":    &step.MinB,
		"shares":   &step.Shares,
		"amount":   &step.Amount,
	}
	for key, dst := range amounts {
		*dst = math.ZeroInt()
		raw, ok := fields[key]
		if !ok {
			continue
		}
		amount, err := toInt(raw)
		if err != nil {
			return Step{}, fmt.Errorf("%s: %w", key, err)
		}
		*dst = amount
	}

	if raw, ok := fields["deadline"]; ok {
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return Step{}, fmt.Errorf("deadline: %w", err)
		}
		step.Deadline = d
	}

	switch step.Op {
	case "deposit", "withdraw", "swap":
		if step.TokenA == "" || step.TokenB == "" {
			return Step{}, fmt.Errorf("%s needs token_a and token_b", step.Op)
		}
	case "approve", "transfer", "transfer_from":
		if step.Counterpart == "" {
			return Step{}, fmt.Errorf("%s needs a counterpart", step.Op)
		}
	default:
		return Step{}, fmt.Errorf("unknown op %q", step.Op)
	}
	return step, nil
}

// toInt accepts integers and decimal strings.
func toInt(raw interface{}) (math.Int, error) {
	s, err := cast.ToStringE(raw)
	if err != nil {
		return math.Int{}, err
	}
	amount, ok := math.NewIntFromString(strings.TrimSpace(s))
	if !ok {
		return math.Int{}, types.ErrInvalidAmount.Wrapf("%q is not an integer", s)
	}
	return amount, nil
}

// StepClock is the sandbox block time of a simulation. It only moves when advanced.
type StepClock struct {
	now      time.Time
	interval time.Duration
}

// NewStepClock starts a clock at start that advances by interval per step.
func NewStepClock(start time.Time, interval time.Duration) *StepClock {
	return &StepClock{now: start, interval: interval}
}

func (c *StepClock) Now() time.Time { return c.now }

func (c *StepClock) Advance() { c.now = c.now.Add(c.interval) }

// RunScenario funds the scenario accounts and executes its steps in order.
// A step that fails without expecting to aborts the run.
func RunScenario(ctx context.Context, sb *sandbox.Sandbox, scenario *Scenario, clock *StepClock) (*SimulationReport, error) {
	names := make([]string, 0, len(scenario.Accounts))
	for name := range scenario.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := sb.Fund(ctx, ActorAddress(name), scenario.Accounts[name]); err != nil {
			return nil, fmt.Errorf("fund %s: %w", name, err)
		}
	}

	report := &SimulationReport{Policy: scenario.Policy.String()}
	actors := make(map[string]struct{})
	for _, name := range names {
		actors[name] = struct{}{}
	}

	for i, step := range scenario.Steps {
		clock.Advance()
		actors[step.Actor] = struct{}{}
		if step.Counterpart != "" {
			actors[step.Counterpart] = struct{}{}
		}
		if step.Recipient != "" {
			actors[step.Recipient] = struct{}{}
		}

		result, err := runStep(ctx, sb, step, clock.Now().Add(step.Deadline))
		sr := StepResult{Index: i, Op: step.Op, Actor: step.Actor, Height: sb.Height(), Result: result}
		switch {
		case err != nil && step.ExpectError != "" && strings.Contains(err.Error(), step.ExpectError):
			sr.Error = err.Error()
		case err != nil:
			return nil, fmt.Errorf("step %d (%s by %s): %w", i, step.Op, step.Actor, err)
		case step.ExpectError != "":
			return nil, fmt.Errorf("step %d (%s by %s): expected error %q", i, step.Op, step.Actor, step.ExpectError)
		}
		report.Steps = append(report.Steps, sr)
	}

	if err := collectState(ctx, sb, report, actors); err != nil {
		return nil, err
	}
	return report, nil
}

func runStep(ctx context.Context, sb *sandbox.Sandbox, step Step, deadline time.Time) (map[string]string, error) {
	actor := ActorAddress(step.Actor)
	recipient := actor
	if step.Recipient != "" {
		recipient = ActorAddress(step.Recipient)
	}

	switch step.Op {
	case "deposit":
		res, err := sb.Deposit(ctx, types.DepositRequest{
			Provider:       actor,
			TokenA:         step.TokenA,
			TokenB:         step.TokenB,
			AmountADesired: step.AmountA,
			AmountBDesired: step.AmountB,
			AmountAMin:     step.MinA,
			AmountBMin:     step.MinB,
			Recipient:      recipient,
			Deadline:       deadline,
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount_a": res.AmountA.String(), "amount_b": res.AmountB.String(), "shares": res.Shares.String()}, nil

	case "withdraw":
		res, err := sb.Withdraw(ctx, types.WithdrawRequest{
			Provider:   actor,
			TokenA:     step.TokenA,
			TokenB:     step.TokenB,
			Shares:     step.Shares,
			AmountAMin: step.MinA,
			AmountBMin: step.MinB,
			Recipient:  recipient,
			Deadline:   deadline,
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount_a": res.AmountA.String(), "amount_b": res.AmountB.String()}, nil

	case "swap":
		res, err := sb.Swap(ctx, types.SwapRequest{
			Trader:       actor,
			Path:         []string{step.TokenA, step.TokenB},
			AmountIn:     step.Amount,
			AmountOutMin: step.MinB,
			Recipient:    recipient,
			Deadline:     deadline,
		})
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount_in": res.AmountIn.String(), "amount_out": res.AmountOut.String()}, nil

	case "approve":
		return nil, sb.Approve(ctx, actor, ActorAddress(step.Counterpart), step.Amount)

	case "transfer":
		return nil, sb.Transfer(ctx, actor, ActorAddress(step.Counterpart), step.Amount)

	case "transfer_from":
		// actor spends counterpart's shares and sends them to recipient
		return nil, sb.TransferFrom(ctx, actor, ActorAddress(step.Counterpart), recipient, step.Amount)
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func collectState(ctx context.Context, sb *sandbox.Sandbox, report *SimulationReport, actors map[string]struct{}) error {
	return sb.Query(ctx, func(sdkCtx sdk.Context) error {
		k := sb.Keeper()
		pairs, err := k.AllReserves(sdkCtx)
		if err != nil {
			return err
		}
		report.Pairs = pairs

		denoms := make(map[string]struct{})
		for _, p := range pairs {
			denoms[p.Pair.Low] = struct{}{}
			denoms[p.Pair.High] = struct{}{}
		}

		report.Shares = make(map[string]string, len(actors))
		report.Balances = make(map[string]map[string]string, len(actors))
		for name := range actors {
			addr := ActorAddress(name)
			shares, err := k.BalanceOf(sdkCtx, addr)
			if err != nil {
				return err
			}
			report.Shares[name] = shares.String()

			balances := make(map[string]string, len(denoms))
			for denom := range denoms {
				balances[denom] = sb.Book().GetBalance(sdkCtx, addr, denom).Amount.String()
			}
			report.Balances[name] = balances
		}
		return nil
	})
}

// String renders the report as text.
func (r *SimulationReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "policy: %s\n", r.Policy)
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "#%d %-13s %-8s height=%d", s.Index, s.Op, s.Actor, s.Height)
		keys := make([]string, 0, len(s.Result))
		for k := range s.Result {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, s.Result[k])
		}
		if s.Error != "" {
			fmt.Fprintf(&b, " failed: %s", s.Error)
		}
		b.WriteString("\n")
	}

	b.WriteString("reserves:\n")
	for _, p := range r.Pairs {
		fmt.Fprintf(&b, "  %s: %s%s %s%s\n", p.Pair, p.Reserves.Low, p.Pair.Low, p.Reserves.High, p.Pair.High)
	}

	names := make([]string, 0, len(r.Shares))
	for name := range r.Shares {
		names = append(names, name)
	}
	sort.Strings(names)
	b.WriteString("accounts:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s: shares=%s", name, r.Shares[name])
		denoms := make([]string, 0, len(r.Balances[name]))
		for denom := range r.Balances[name] {
			denoms = append(denoms, denom)
		}
		sort.Strings(denoms)
		for _, denom := range denoms {
			fmt.Fprintf(&b, " %s=%s", denom, r.Balances[name][denom])
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "events: %d\n", r.Events)
	return b.String()
}
