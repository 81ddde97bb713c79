// Command simplebudget drives a budgeting session from the terminal: pick a
// budget and month, manage categories, subcategories and transactions,
// share budgets and export a month to Google Sheets.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"simplebudget/internal/api"
	"simplebudget/internal/cli"
	"simplebudget/internal/core"
	"simplebudget/internal/metrics"
	"simplebudget/internal/session"
)

// Set by -ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runner holds what every subcommand shares: flags and the wired app.
type runner struct {
	out    io.Writer
	errOut io.Writer

	budget          string
	period          string
	metricsTextfile string

	now func() time.Time
	app *cli.App
}

func newRunner(out, errOut io.Writer) *runner {
	return &runner{out: out, errOut: errOut, now: time.Now}
}

// execute runs one command line with the wall clock.
func execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	return newRunner(out, errOut).execute(ctx, args)
}

// execute runs one command line and always releases what setup opened,
// including when the command fails.
func (r *runner) execute(ctx context.Context, args []string) error {
	cmd := newRootCmd(r)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, r.teardown())
}

func newRootCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simplebudget",
		Short: "Plan and track monthly spending",
		Long: `simplebudget talks to the budget API as the configured identity.

Configuration comes from the environment (or a .env file):
  API_BASE_URL, ACCESS_TOKEN / OAUTH_TOKEN_FILE, IDENTITY_ID, PREFERENCES_BACKEND, ...

Examples:
  simplebudget budgets create Household
  simplebudget category add Food 500 --period "March 2025"
  simplebudget tx add Food/Groceries "Weekly shop" 42.50
  simplebudget month --period "March 2025"
`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: r.setup,
	}
	cmd.SetOut(r.out)
	cmd.SetErr(r.errOut)

	cmd.PersistentFlags().StringVarP(&r.budget, "budget", "b", "", "Budget id or name to act on (default: last used)")
	cmd.PersistentFlags().StringVarP(&r.period, "period", "p", "", `Reporting month, e.g. "March 2025" (default: current month)`)
	cmd.PersistentFlags().StringVar(&r.metricsTextfile, "metrics-textfile", "", "Write client metrics to this file on exit")

	cmd.AddCommand(
		versionCmd(r),
		budgetsCmd(r),
		monthCmd(r),
		categoryCmd(r),
		subcategoryCmd(r),
		txCmd(r),
		inviteCmd(r),
		invitationCmd(r),
		templatesCmd(r),
		exportCmd(r),
		eventsCmd(r),
	)
	return cmd
}

// setup loads config, signs in and selects the requested scope.
func (r *runner) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || (cmd.HasParent() && cmd.Parent().Name() == "completion") {
		return nil
	}
	ctx := cmd.Context()

	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, r.errOut)

	var m *metrics.Metrics
	if r.metricsTextfile != "" {
		m = metrics.New()
	}

	r.app, err = cli.NewApp(ctx, cfg, logger, m, cli.WithClock(r.now))
	if err != nil {
		return err
	}
	if err := r.app.SignIn(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	if err := r.sessionError(); err != nil {
		return err
	}

	if r.budget != "" {
		b, err := r.resolveBudget(r.budget)
		if err != nil {
			return err
		}
		if err := r.store().SwitchBudget(ctx, b.ID); err != nil {
			return err
		}
	}
	if r.period != "" {
		if err := r.store().SetPeriodLabel(ctx, r.period); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) teardown() error {
	if r.app == nil {
		return nil
	}
	defer func() { r.app = nil }()
	var errs []error
	if r.metricsTextfile != "" {
		errs = append(errs, r.app.Metrics.WriteTextfile(r.metricsTextfile))
	}
	errs = append(errs, r.app.Close())
	return errors.Join(errs...)
}

func (r *runner) store() *session.Store {
	return r.app.Session
}

// sessionError turns a recorded session error into a command error.
func (r *runner) sessionError() error {
	if msg := r.store().Snapshot().Error; msg != "" {
		return errors.New(msg)
	}
	return nil
}

// check reports a command failure with the user-facing message.
func check(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) || errors.Is(err, api.ErrTransport) {
		return errors.New(api.Message(err))
	}
	return err
}

func (r *runner) resolveBudget(ref string) (core.Budget, error) {
	st := r.store().Snapshot()
	for _, b := range st.Budgets {
		if b.ID == ref {
			return b, nil
		}
	}
	for _, b := range st.Budgets {
		if strings.EqualFold(b.Name, ref) {
			return b, nil
		}
	}
	return core.Budget{}, fmt.Errorf("%w: %s", session.ErrUnknownBudget, ref)
}

func versionCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(r.out, "simplebudget", version)
		},
	}
}
