package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/config"
	"dw-importer/core/database"
	"dw-importer/core/importer"
	"dw-importer/core/logger"
	"dw-importer/core/retry"
	"dw-importer/core/source"
	"dw-importer/core/storage"
	"dw-importer/core/warehouse"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	sourcesPath  string
	systemFilter string
	dryRunImport bool
	yesConfirm   bool
	skipReport   bool
)

// importCmd runs an import: stage, merge, validate, report.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import staged snapshots into the warehouse",
	Long: `Import stages every configured table's snapshot, merges the rows into
the warehouse (insert if absent, update if changed, skip if identical),
validates the result, and publishes a run report.

Examples:
  # Import all systems (with interactive confirmation)
  dw-importer import

  # Import one system non-interactively
  dw-importer import --system marina --yes

  # See what would change without touching the warehouse
  dw-importer import --dry-run`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&sourcesPath, "sources", "sources.yaml", "Path to the source catalog")
	importCmd.Flags().StringVar(&systemFilter, "system", "", "Import only the named system")
	importCmd.Flags().BoolVar(&dryRunImport, "dry-run", false, "Run the full pipeline against an in-memory store")
	importCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm the import (non-interactive)")
	importCmd.Flags().BoolVar(&skipReport, "skip-report", false, "Do not publish the run report to storage")

	RootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer l.Sync()

	systems, err := loadSystems(sourcesPath, systemFilter)
	if err != nil {
		return err
	}

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}
	producer := source.NewObjectProducer(client, cfg.Storage.Bucket, cfg.Storage.Prefix, l)

	var store warehouse.Store
	if dryRunImport {
		l.Info("Dry-run mode: the warehouse will not be touched")
		store = warehouse.NewMemoryStore()
	} else {
		if !confirmImport(systems) {
			l.Warn("Import cancelled by user. No changes were made.")
			return nil
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to warehouse: %w", err)
		}
		store = warehouse.NewGormStore(db)
	}

	imp := importer.New(importer.Options{
		Store:    store,
		Producer: producer,
		Retry:    cfg.Retry,
		Validate: cfg.Validate,
		Log:      l,
		DryRun:   dryRunImport,
	})

	// Second precision: the warehouse stores DATETIME, and counts are
	// re-derived by comparing stored timestamps against this value.
	now := time.Now().UTC().Truncate(time.Second)

	sum, runErr := imp.Run(ctx, systems, now)
	sum.Log(l)

	if !skipReport && !dryRunImport {
		if err := importer.NewReporter(client, cfg.Import, l).Publish(ctx, sum); err != nil {
			l.Error("Failed to publish run report", zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	if sum.State != retry.StateSuccess {
		return fmt.Errorf("import finished in state %s: %d rows failed", sum.State, sum.Failed)
	}
	return nil
}

// loadSystems reads the source catalog and applies the --system filter.
func loadSystems(path, filter string) ([]catalog.System, error) {
	systems, err := config.LoadSources(path)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return systems, nil
	}
	for i := range systems {
		if systems[i].Name == filter {
			return []catalog.System{systems[i]}, nil
		}
	}
	return nil, fmt.Errorf("source catalog %s has no system %q", path, filter)
}

// confirmImport prompts before writing to the warehouse, or accepts the
// --yes flag for unattended runs.
func confirmImport(systems []catalog.System) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	names := make([]string, len(systems))
	for i, s := range systems {
		names[i] = s.Name
	}
	fmt.Printf("\n⚠️  About to import systems [%s] into the warehouse. Type 'yes' to confirm: ", strings.Join(names, ", "))
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	return strings.TrimSpace(response) == "yes"
}
