package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"ledgerbridge/internal/backend"
	"ledgerbridge/internal/cli"
	"ledgerbridge/internal/config"
	"ledgerbridge/internal/core"
	"ledgerbridge/internal/services"
)

// commands are the setters, one per stored secret.
var commands = []subcommands.Command{
	&setCmd{
		name:     "set-service-key",
		key:      services.SettingServiceKey,
		synopsis: "store the automation platform service key (64 characters)",
	},
	&setCmd{
		name:     "set-token",
		key:      services.SettingAccessToken,
		synopsis: "store the ledger personal access token (64 characters)",
	},
	&setCmd{
		name:     "set-default-budget",
		key:      services.SettingDefaultBudget,
		synopsis: "store the budget used by the *_default triggers and actions",
	},
}

// environment is what every command opens: configuration, the state store
// and a secrets provider over it.
type environment struct {
	cfg     *config.Config
	store   backend.Backend
	secrets *services.SecretsProvider
	close   func()
}

// open connects to the configured store. The broker is never opened here.
func open(ctx context.Context) (*environment, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	backendCfg.AMQPURL = ""

	result, err := backend.NewFactory(nil).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}
	return &environment{
		cfg:     cfg,
		store:   result.Backend,
		secrets: cli.NewSecrets(cfg, result.Backend),
		close: func() {
			if result.Cleanup != nil {
				_ = result.Cleanup()
			}
		},
	}, nil
}

type setCmd struct {
	name     string
	key      string
	synopsis string
}

func (c *setCmd) Name() string     { return c.name }
func (c *setCmd) Synopsis() string { return c.synopsis }
func (c *setCmd) Usage() string {
	return fmt.Sprintf("%s <value>\n\n  %s.\n", c.name, c.synopsis)
}
func (c *setCmd) SetFlags(*flag.FlagSet) {}

func (c *setCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	env, err := open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer env.close()

	if err := env.secrets.Set(ctx, c.key, f.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s updated\n", c.key)
	return subcommands.ExitSuccess
}

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "run one sync cycle now and print its report" }
func (*syncCmd) Usage() string {
	return `sync

  Fetches every new or modified budget, updates the change logs and notifies
  subscribed triggers, as the worker does on each tick.
`
}
func (*syncCmd) SetFlags(*flag.FlagSet) {}

func (*syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	env, err := open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer env.close()

	svc := cli.NewSyncService(env.cfg, cli.NewLedgerClient(env.cfg), env.store, env.secrets, nil)
	report, err := svc.RunCycle(ctx)
	if report != nil {
		printReport(os.Stdout, report)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if report != nil && report.Failed() > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printReport(w io.Writer, report *services.CycleReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUDGET\tNAME\tKNOWLEDGE\tCHANGES\tSTATE\tERROR")
	for _, b := range report.Budgets {
		changes := 0
		for _, n := range b.Emitted {
			changes += n
		}
		errText := ""
		if b.Err != nil {
			errText = b.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n", b.BudgetID, b.Name, b.Knowledge, changes, b.State, errText)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d budgets, %d failed, %d triggers notified in %s\n",
		len(report.Budgets), report.Failed(), len(report.Notified),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.NotifyErr != nil {
		fmt.Fprintf(w, "notification failed: %v\n", report.NotifyErr)
	}
}

type budgetsCmd struct{}

func (*budgetsCmd) Name() string     { return "budgets" }
func (*budgetsCmd) Synopsis() string { return "list the budgets the access token can read" }
func (*budgetsCmd) Usage() string {
	return `budgets

  Lists budget ids and names, for use with set-default-budget.
`
}
func (*budgetsCmd) SetFlags(*flag.FlagSet) {}

func (*budgetsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	env, err := open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer env.close()

	secrets, err := env.secrets.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if secrets.AccessToken == "" {
		fmt.Fprintln(os.Stderr, core.ErrNoAccessToken)
		return subcommands.ExitFailure
	}

	budgets, err := cli.NewLedgerClient(env.cfg).ListBudgets(ctx, secrets.AccessToken)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLAST MODIFIED\tDEFAULT")
	for _, b := range budgets {
		mark := ""
		if b.ID == secrets.DefaultBudget {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Name, b.LastModifiedOn, mark)
	}
	tw.Flush()
	return subcommands.ExitSuccess
}

type showCmd struct {
	reveal bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "show stored credentials and synced budgets" }
func (*showCmd) Usage() string {
	return `show [-reveal]

  Prints the configured credentials (masked unless -reveal) and the budgets
  with a stored change log.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.reveal, "reveal", false, "print credentials in full")
}

func (c *showCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	env, err := open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer env.close()

	secrets, err := env.secrets.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	ids, err := env.store.BudgetIDs(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	sort.Strings(ids)

	mask := maskSecret
	if c.reveal {
		mask = func(s string) string { return s }
	}
	fmt.Printf("service key:    %s\n", orUnset(mask(secrets.ServiceKey)))
	fmt.Printf("access token:   %s\n", orUnset(mask(secrets.AccessToken)))
	fmt.Printf("default budget: %s\n", orUnset(secrets.DefaultBudget))
	fmt.Printf("synced budgets: %s\n", orUnset(strings.Join(ids, ", ")))
	return subcommands.ExitSuccess
}

// maskSecret keeps the first and last four characters.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
