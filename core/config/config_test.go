package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dw-importer/core/config"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := config.LoadConfig(t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "warehouse", cfg.Database.Name)
		assert.Equal(t, "staging", cfg.Storage.Bucket)
		assert.Equal(t, "reports", cfg.Import.ReportBucket)
		assert.Equal(t, 3, cfg.Retry.MaxAttempts)
		assert.Equal(t, 500, cfg.Retry.BackoffMS)
		assert.Equal(t, 5, cfg.Validate.KeySampleSize)
		assert.Equal(t, "console", cfg.Log.Format)
	})

	t.Run("EnvOverride", func(t *testing.T) {
		t.Setenv("RETRY_MAX_ATTEMPTS", "7")
		t.Setenv("IMPORT_REPORT_BUCKET", "ops-reports")
		t.Setenv("DATABASE_NAME", "dw")

		cfg, err := config.LoadConfig(t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, 7, cfg.Retry.MaxAttempts)
		assert.Equal(t, "ops-reports", cfg.Import.ReportBucket)
		assert.Equal(t, "dw", cfg.Database.Name)
	})
}

const sourcesYAML = `
systems:
  - name: marina
    tables:
      - name: boats
        source_object: exports/marina/boats.csv.gz
        key_columns: [boat_id]
        columns:
          - { name: name, type: text }
          - { name: length_m, type: decimal }
      - name: berths
        source_object: exports/marina/berths.csv.gz
        key_columns: [berth_id]
        columns:
          - { name: boat_id, type: integer }
          - { name: pontoon, type: text }
        refs:
          - { column: boat_id, parent_table: boats, parent_column: boat_id }
`

func writeSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSources(t *testing.T) {
	t.Run("ValidCatalog", func(t *testing.T) {
		systems, err := config.LoadSources(writeSources(t, sourcesYAML))
		require.NoError(t, err)
		require.Len(t, systems, 1)

		sys := systems[0]
		assert.Equal(t, "marina", sys.Name)
		require.Len(t, sys.Tables, 2)
		assert.Equal(t, "boats", sys.Tables[0].Name)
		assert.Equal(t, []string{"boat_id"}, sys.Tables[0].KeyColumns)
		assert.Equal(t, "decimal", sys.Tables[0].Columns[1].Type)
		require.Len(t, sys.Tables[1].Refs, 1)
		assert.Equal(t, "boats", sys.Tables[1].Refs[0].ParentTable)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := config.LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("EmptyCatalog", func(t *testing.T) {
		_, err := config.LoadSources(writeSources(t, "systems: []\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "defines no systems")
	})

	t.Run("TableWithoutKey", func(t *testing.T) {
		bad := `
systems:
  - name: marina
    tables:
      - name: boats
        source_object: boats.csv
        columns:
          - { name: name, type: text }
`
		_, err := config.LoadSources(writeSources(t, bad))
		require.Error(t, err)
	})
}
