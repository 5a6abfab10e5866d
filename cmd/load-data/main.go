// Command load-data replaces the stored access points with a CSV snapshot.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/EmpoweredVote/wifi-points/internal/config"
	"github.com/EmpoweredVote/wifi-points/internal/ingest"
	"github.com/EmpoweredVote/wifi-points/internal/logging"
	"github.com/EmpoweredVote/wifi-points/internal/wifi"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type flags struct {
	csvPath    string
	configPath string
	dryRun     bool
	atomic     bool
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "load-data",
		Short: "Load the WiFi access point CSV into the point store",
		Long: `Reads the CSV snapshot, renames duplicated ids, applies defaults for
missing neighborhood, district and installation date, then deletes every
stored access point and inserts the new set in chunks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.csvPath, "csv", "", "CSV file to load (default: CSV_PATH or "+config.DefaultCSVPath+")")
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML config file (default: CONFIG_FILE)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Prepare and report without touching the store")
	cmd.Flags().BoolVar(&f.atomic, "atomic", false, "Run the delete and all chunks in one transaction")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "Print the final report as JSON")

	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	// A dry run never opens the store, so it needs no DATABASE_URL.
	cfg, err := config.Read(f.configPath)
	if err == nil && !f.dryRun {
		err = cfg.Validate()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.csvPath != "" {
		cfg.CSVPath = f.csvPath
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = log.Named("load-data")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fail on the source before opening (and migrating) the store.
	rows, err := ingest.ReadCSVFile(cfg.CSVPath)
	if err != nil {
		return err
	}
	log.Info("Source read", zap.String("path", cfg.CSVPath), zap.Int("rows", len(rows)))

	var store wifi.Store
	if !f.dryRun {
		if store, err = wifi.OpenStore(ctx, cfg, log); err != nil {
			return err
		}
		defer store.Close()
	}

	rep, err := ingest.Run(ctx, store, rows, ingest.Options{
		BatchSize: cfg.BatchSize,
		Atomic:    f.atomic,
		DryRun:    f.dryRun,
	}, log)
	if err != nil {
		return err
	}

	if f.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rows read: %d, rejected: %d, renamed ids: %d, final count: %d\n",
		rep.RowsRead, len(rep.Rejected), rep.RenamedIDs, rep.FinalCount)
	return nil
}

func main() {
	_ = godotenv.Load(".env.local")

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "load-data:", err)
		os.Exit(1)
	}
}
