package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"dw-importer/core/catalog"
)

// ReadSnapshot parses a CSV extract against the table schema. The first
// record is the header; every declared column (keys and tracked) must
// appear in it. Extra columns in the extract are ignored.
func ReadSnapshot(r io.Reader, table *catalog.Table) (*Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("extract for %s is empty, expected a header record", table.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header for %s: %w", table.Name, err)
	}

	position := make(map[string]int, len(header))
	for i, name := range header {
		position[strings.TrimSpace(name)] = i
	}

	columns := table.AllColumns()
	indexes := make([]int, len(columns))
	for i, col := range columns {
		idx, ok := position[col.Name]
		if !ok {
			return nil, fmt.Errorf("extract for %s has no column %s", table.Name, col.Name)
		}
		indexes[i] = idx
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read extract for %s: %w", table.Name, err)
		}
		records = append(records, rec)
	}

	return &Snapshot{
		table:   table,
		columns: columns,
		indexes: indexes,
		records: records,
	}, nil
}
