package importer_test

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dw-importer/core/importer"
	"dw-importer/core/retry"
	"dw-importer/core/storage/mocks"
)

func TestReporterPublish(t *testing.T) {
	sum := &importer.RunSummary{RunID: "run-42", State: retry.StateSuccess}

	t.Run("WritesRunAndLatest", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", mock.Anything, "reports").Return(true, nil)
		client.On("PutObject", mock.Anything, "reports", "run-42.json",
			mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)
		client.On("PutObject", mock.Anything, "reports", importer.LatestReport,
			mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

		r := importer.NewReporter(client, importer.Config{ReportBucket: "reports"}, nil)
		require.NoError(t, r.Publish(context.Background(), sum))
		client.AssertExpectations(t)
	})

	t.Run("CreatesBucketOnFirstUse", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", mock.Anything, "reports").Return(false, nil)
		client.On("MakeBucket", mock.Anything, "reports", mock.Anything).Return(nil)
		client.On("PutObject", mock.Anything, "reports", mock.Anything,
			mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

		r := importer.NewReporter(client, importer.Config{ReportBucket: "reports"}, nil)
		require.NoError(t, r.Publish(context.Background(), sum))
		client.AssertCalled(t, "MakeBucket", mock.Anything, "reports", mock.Anything)
	})

	t.Run("PrefixedObjectNames", func(t *testing.T) {
		r := importer.NewReporter(&mocks.Client{}, importer.Config{
			ReportBucket: "ops",
			ReportPrefix: "imports/daily",
		}, nil)
		assert.Equal(t, "imports/daily/run-42.json", r.ObjectName("run-42"))
	})
}
