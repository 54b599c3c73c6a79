package cmd

import (
	"context"
	"fmt"
	"time"

	"dw-importer/core/catalog"
	"dw-importer/core/config"
	"dw-importer/core/database"
	"dw-importer/core/logger"
	"dw-importer/core/row"
	"dw-importer/core/source"
	"dw-importer/core/storage"
	"dw-importer/core/validate"
	"dw-importer/core/warehouse"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// validateCmd checks warehouse consistency without merging anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the warehouse against the staged snapshots",
	Long: `Validate runs the post-merge consistency checks on their own: sampled
key existence, null keys in the snapshots, column type conformance, and
referential integrity. Nothing is written.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&sourcesPath, "sources", "sources.yaml", "Path to the source catalog")
	validateCmd.Flags().StringVar(&systemFilter, "system", "", "Validate only the named system")

	RootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
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

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	store := warehouse.NewGormStore(db)

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to connect to storage: %w", err)
	}
	producer := source.NewObjectProducer(client, cfg.Storage.Bucket, cfg.Storage.Prefix, l)

	v := validate.New(store, cfg.Validate, l)
	errCount, warnCount := 0, 0

	for i := range systems {
		system := &systems[i]
		for j := range system.Tables {
			table := &system.Tables[j]

			snap, err := producer.Snapshot(ctx, table)
			if err != nil {
				l.Error("Failed to stage snapshot", zap.String("table", table.Name), zap.Error(err))
				errCount++
				continue
			}

			rep := v.ValidateTable(ctx, table, snapshotFacts(snap, table), time.Time{})
			logIssues(l, rep.Issues)
			errCount += rep.Errors()
			warnCount += rep.Warnings()
		}

		for _, issues := range v.ValidateRefs(ctx, system) {
			logIssues(l, issues)
			errCount += len(issues)
		}
	}

	l.Info("Validation finished", zap.Int("errors", errCount), zap.Int("warnings", warnCount))
	if errCount > 0 {
		return fmt.Errorf("validation found %d errors", errCount)
	}
	return nil
}

// snapshotFacts decodes a snapshot just far enough for validation: the
// staged row count, the usable keys, and how many rows have none.
func snapshotFacts(snap *source.Snapshot, table *catalog.Table) validate.Snapshot {
	facts := validate.Snapshot{RowCount: snap.Count()}
	for i := 0; i < snap.Count(); i++ {
		r, err := snap.Decode(i)
		if err != nil {
			continue
		}
		key, err := row.KeyOf(r, table.KeyColumns)
		if err != nil {
			facts.NullKeyRows++
			continue
		}
		facts.SampleKeys = append(facts.SampleKeys, key)
	}
	return facts
}

func logIssues(l *zap.Logger, issues []validate.Issue) {
	for _, is := range issues {
		f := []zap.Field{
			zap.String("table", is.Table),
			zap.String("kind", string(is.Kind)),
			zap.String("detail", is.Detail),
		}
		if is.Severity == validate.SeverityError {
			l.Error("Validation issue", f...)
		} else {
			l.Warn("Validation issue", f...)
		}
	}
}
