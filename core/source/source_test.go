package source_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dw-importer/core/catalog"
	"dw-importer/core/source"
	"dw-importer/core/storage/mocks"
)

func boatsTable() *catalog.Table {
	return &catalog.Table{
		Name:         "boats",
		SourceObject: "boats.csv",
		KeyColumns:   []string{"boat_id"},
		Columns: []catalog.Column{
			{Name: "name", Type: "text"},
			{Name: "length_m", Type: "decimal"},
			{Name: "registered", Type: "timestamp"},
		},
	}
}

func TestReadSnapshot(t *testing.T) {
	t.Run("DecodesTypedRows", func(t *testing.T) {
		data := "boat_id,name,length_m,registered,extra\n" +
			"1,Heron,12.50,2024-03-01 10:00:00,ignored\n" +
			"2,Curlew,,,x\n"

		snap, err := source.ReadSnapshot(strings.NewReader(data), boatsTable())
		require.NoError(t, err)
		require.Equal(t, 2, snap.Count())

		r, err := snap.Decode(0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), r["boat_id"].Int64())
		assert.Equal(t, "Heron", r["name"].Text())
		assert.Equal(t, "12.50", r["length_m"].Lexical())
		assert.False(t, r["registered"].IsNull())

		r, err = snap.Decode(1)
		require.NoError(t, err)
		assert.True(t, r["length_m"].IsNull())
		assert.True(t, r["registered"].IsNull())
	})

	t.Run("MissingDeclaredColumn", func(t *testing.T) {
		data := "boat_id,name\n1,Heron\n"
		_, err := source.ReadSnapshot(strings.NewReader(data), boatsTable())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no column length_m")
	})

	t.Run("EmptyExtract", func(t *testing.T) {
		_, err := source.ReadSnapshot(strings.NewReader(""), boatsTable())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected a header")
	})

	t.Run("HeaderOnlyIsValid", func(t *testing.T) {
		data := "boat_id,name,length_m,registered\n"
		snap, err := source.ReadSnapshot(strings.NewReader(data), boatsTable())
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Count())
	})

	t.Run("BadCellFailsOnlyItsRecord", func(t *testing.T) {
		data := "boat_id,name,length_m,registered\n" +
			"1,Heron,twelve,\n" +
			"2,Curlew,9.75,\n"

		snap, err := source.ReadSnapshot(strings.NewReader(data), boatsTable())
		require.NoError(t, err)

		_, err = snap.Decode(0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "column length_m")

		r, err := snap.Decode(1)
		require.NoError(t, err)
		assert.Equal(t, "9.75", r["length_m"].Lexical())
	})
}

func TestSnapshotRowID(t *testing.T) {
	data := "boat_id,name,length_m,registered\n" +
		"17,Heron,12.50,\n" +
		",Nameless,1.00,\n"

	snap, err := source.ReadSnapshot(strings.NewReader(data), boatsTable())
	require.NoError(t, err)

	assert.Equal(t, "boat_id=17", snap.RowID(0))
	assert.Equal(t, "line 3", snap.RowID(1))
}

func TestObjectProducer(t *testing.T) {
	data := "boat_id,name,length_m,registered\n1,Heron,12.50,\n"

	t.Run("PlainObject", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("GetObject", mock.Anything, "staging", "2024/boats.csv", mock.Anything).
			Return(io.NopCloser(strings.NewReader(data)), nil)

		p := source.NewObjectProducer(client, "staging", "2024", zap.NewNop())
		snap, err := p.Snapshot(context.Background(), boatsTable())
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Count())
		client.AssertExpectations(t)
	})

	t.Run("GzipObject", func(t *testing.T) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte(data))
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		table := boatsTable()
		table.SourceObject = "boats.csv.gz"

		client := &mocks.Client{}
		client.On("GetObject", mock.Anything, "staging", "boats.csv.gz", mock.Anything).
			Return(io.NopCloser(bytes.NewReader(buf.Bytes())), nil)

		p := source.NewObjectProducer(client, "staging", "", zap.NewNop())
		snap, err := p.Snapshot(context.Background(), table)
		require.NoError(t, err)
		assert.Equal(t, 1, snap.Count())
	})

	t.Run("FetchError", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("GetObject", mock.Anything, "staging", "boats.csv", mock.Anything).
			Return(nil, assert.AnError)

		p := source.NewObjectProducer(client, "staging", "", zap.NewNop())
		_, err := p.Snapshot(context.Background(), boatsTable())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch")
	})
}
