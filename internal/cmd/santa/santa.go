// Package santa builds the offline secret-santa command line.
//
// Usage:
//
//	santa draw --employees <file> --previous <file> [--seed N] [-o json|yaml|csv|table|markdown] [--db <path>]
//	santa show --db <path> --draw <id> [-o ...]
//	santa history --db <path> --draw <id>
//	santa health [--addr host:port]
package santa

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	entrypoint "github.com/louisbranch/secretsanta/internal/platform/cmd"
	platformgrpc "github.com/louisbranch/secretsanta/internal/platform/grpc"
	"github.com/louisbranch/secretsanta/internal/platform/logging"
	"github.com/louisbranch/secretsanta/internal/platform/timeouts"
	exchange "github.com/louisbranch/secretsanta/internal/services/exchange/app"
	"github.com/louisbranch/secretsanta/internal/services/exchange/export"
	"github.com/louisbranch/secretsanta/internal/services/exchange/service"
	"github.com/louisbranch/secretsanta/internal/services/exchange/storage/sqlite"
	"github.com/louisbranch/secretsanta/internal/services/exchange/table"
)

type globalFlags struct {
	verbose bool
}

// NewRootCommand builds the santa command tree.
func NewRootCommand(version string) *cobra.Command {
	var global globalFlags
	root := &cobra.Command{
		Use:           entrypoint.ServiceCLI,
		Short:         "Draw secret-santa assignments from spreadsheet rosters",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "log draw progress to stderr")

	root.AddCommand(newDrawCommand(&global))
	root.AddCommand(newShowCommand(&global))
	root.AddCommand(newHistoryCommand(&global))
	root.AddCommand(newHealthCommand())
	return root
}

type drawFlags struct {
	employees   string
	previous    string
	seed        int64
	output      string
	dbPath      string
	maxAttempts int
	historyOut  string
}

func newDrawCommand(global *globalFlags) *cobra.Command {
	var flags drawFlags
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Assign every employee a secret child",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := export.ParseFormat(flags.output)
			if err != nil {
				return err
			}
			var seed *int64
			if cmd.Flags().Changed("seed") {
				seed = &flags.seed
			}

			svc, closeSvc, err := openService(*global, flags.dbPath, flags.maxAttempts)
			if err != nil {
				return err
			}
			defer closeSvc()

			employees, err := os.Open(flags.employees)
			if err != nil {
				return fmt.Errorf("open employee file: %w", err)
			}
			defer employees.Close()
			previous, err := os.Open(flags.previous)
			if err != nil {
				return fmt.Errorf("open previous assignment file: %w", err)
			}
			defer previous.Close()

			drawn, err := svc.DrawTables(cmd.Context(),
				table.Source{Name: filepath.Base(flags.employees), Reader: employees},
				table.Source{Name: filepath.Base(flags.previous), Reader: previous},
				seed,
			)
			if err != nil {
				return err
			}

			records := export.Records(drawn.Participants)
			if err := export.Write(cmd.OutOrStdout(), format, records); err != nil {
				return fmt.Errorf("write assignments: %w", err)
			}
			if flags.historyOut != "" {
				if err := writeHistoryFile(flags.historyOut, records); err != nil {
					return err
				}
			}
			printSummary(cmd.ErrOrStderr(), drawn, svc.Persistent())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.employees, "employees", "", "employee roster (.csv or .xlsx) with Employee_Name, Employee_EmailID")
	f.StringVar(&flags.previous, "previous", "", "previous assignments (.csv or .xlsx) with Employee_Name, Secret_Child_Name")
	f.Int64Var(&flags.seed, "seed", 0, "replay a draw with this seed")
	f.StringVarP(&flags.output, "output", "o", string(export.FormatTable), "output format: "+formatNames())
	f.StringVar(&flags.dbPath, "db", "", "SQLite path to store the draw")
	f.IntVar(&flags.maxAttempts, "max-attempts", service.DefaultMaxAttempts, "engine runs before giving up")
	f.StringVar(&flags.historyOut, "history-out", "", "also write next year's previous-assignments CSV here")
	_ = cmd.MarkFlagRequired("employees")
	_ = cmd.MarkFlagRequired("previous")
	return cmd
}

type storedDrawFlags struct {
	dbPath string
	drawID string
	output string
}

func (f *storedDrawFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dbPath, "db", "", "SQLite path holding stored draws")
	cmd.Flags().StringVar(&f.drawID, "draw", "", "draw id")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("draw")
}

func newShowCommand(global *globalFlags) *cobra.Command {
	var flags storedDrawFlags
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored draw",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := export.ParseFormat(flags.output)
			if err != nil {
				return err
			}
			drawn, err := loadDraw(cmd.Context(), *global, flags)
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), format, export.Records(drawn.Participants))
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", string(export.FormatTable), "output format: "+formatNames())
	return cmd
}

func newHistoryCommand(global *globalFlags) *cobra.Command {
	var flags storedDrawFlags
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Write a stored draw as a previous-assignments CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			drawn, err := loadDraw(cmd.Context(), *global, flags)
			if err != nil {
				return err
			}
			return export.WriteHistoryCSV(cmd.OutOrStdout(), export.Records(drawn.Participants))
		},
	}
	flags.register(cmd)
	return cmd
}

func newHealthCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that an exchange server reports SERVING over gRPC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logf := func(format string, args ...any) {
				fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
			}
			conn, err := platformgrpc.DialWithHealth(cmd.Context(), addr, exchange.HealthService, timeout, logf)
			if err != nil {
				return err
			}
			_ = conn.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8081", "exchange gRPC address")
	cmd.Flags().DurationVar(&timeout, "timeout", timeouts.HealthWait, "how long to wait for SERVING")
	return cmd
}

func openService(global globalFlags, dbPath string, maxAttempts int) (*service.Service, func(), error) {
	logger := zap.NewNop()
	if global.verbose {
		var err error
		logger, err = logging.New(entrypoint.ServiceCLI, logging.Config{Level: "debug", Development: true})
		if err != nil {
			return nil, nil, err
		}
	}

	cfg := service.Config{MaxAttempts: maxAttempts, Logger: logger}
	closeFn := func() { _ = logger.Sync() }
	if path := strings.TrimSpace(dbPath); path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open exchange sqlite store: %w", err)
		}
		cfg.Store = store
		closeFn = func() {
			_ = store.Close()
			_ = logger.Sync()
		}
	}
	return service.New(cfg), closeFn, nil
}

func loadDraw(ctx context.Context, global globalFlags, flags storedDrawFlags) (service.Draw, error) {
	if _, err := os.Stat(flags.dbPath); err != nil {
		return service.Draw{}, fmt.Errorf("open draw store: %w", err)
	}
	svc, closeSvc, err := openService(global, flags.dbPath, 0)
	if err != nil {
		return service.Draw{}, err
	}
	defer closeSvc()
	return svc.GetDraw(ctx, flags.drawID)
}

func writeHistoryFile(path string, records []export.Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close history file: %w", closeErr)
		}
	}()
	if err := export.WriteHistoryCSV(f, records); err != nil {
		return fmt.Errorf("write history file: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, d service.Draw, stored bool) {
	fmt.Fprintf(w, "draw %s: seed %d, %d attempt(s)", d.ID, d.Seed, d.Attempts)
	if stored {
		fmt.Fprint(w, ", stored")
	}
	fmt.Fprintln(w)
	if len(d.Relaxed) > 0 {
		fmt.Fprintf(w, "history ignored for: %s\n", strings.Join(d.Relaxed, ", "))
	}
}

func formatNames() string {
	names := make([]string, 0, len(export.Formats))
	for _, f := range export.Formats {
		names = append(names, string(f))
	}
	return strings.Join(names, "|")
}
