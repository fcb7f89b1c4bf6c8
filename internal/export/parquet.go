// Package export writes forecast batches as parquet files to object storage.
package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/roomrate/internal/adapter/storage"
	"github.com/tigerroll/roomrate/internal/config"
	"github.com/tigerroll/roomrate/internal/domain/model"
	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

const moduleName = "export"

// Exporter uploads the forecast batch of a run as one parquet file under <output_base_dir>/dt=<run date>/.
type Exporter struct {
	cfg      config.ExportConfig
	resolver storage.StorageConnectionResolver
	now      func() time.Time
}

// NewExporter creates an Exporter.
func NewExporter(cfg config.ExportConfig, resolver storage.StorageConnectionResolver) *Exporter {
	return &Exporter{cfg: cfg, resolver: resolver, now: time.Now}
}

// Enabled reports whether exports are configured.
func (e *Exporter) Enabled() bool {
	return e != nil && e.cfg.Enabled
}

// Export writes records and returns the object name of the uploaded file.
// An empty batch uploads nothing.
func (e *Exporter) Export(ctx context.Context, runID string, records []model.ForecastRecord) (string, error) {
	if len(records) == 0 {
		logger.Infof("No forecast rows to export for run %s.", runID)
		return "", nil
	}
	codec, err := compressionCodec(e.cfg.Compression)
	if err != nil {
		return "", exception.NewPipelineError(moduleName, "invalid export compression", err, false)
	}
	conn, err := e.resolver.ResolveStorageConnection(ctx, e.cfg.StorageRef)
	if err != nil {
		return "", exception.NewPipelineError(moduleName, fmt.Sprintf("failed to resolve storage connection '%s'", e.cfg.StorageRef), err, false)
	}

	generatedAt := e.now().UTC()
	buf, err := encode(runID, records, generatedAt, codec)
	if err != nil {
		return "", exception.NewPipelineError(moduleName, "failed to encode forecast parquet", err, false)
	}

	objectName := ObjectName(e.cfg.OutputBaseDir, runID, generatedAt)
	logger.Debugf("Uploading %d bytes to %s/%s", buf.Len(), e.cfg.StorageRef, objectName)
	if err := conn.Upload(ctx, "", objectName, buf, "application/octet-stream"); err != nil {
		return "", exception.NewPipelineError(moduleName, "failed to upload "+objectName, err, true)
	}
	logger.Infof("Exported %d forecast rows to %s/%s.", len(records), e.cfg.StorageRef, objectName)
	return objectName, nil
}

// ObjectName returns the Hive-style object path of a run's export.
func ObjectName(baseDir, runID string, generatedAt time.Time) string {
	partition := "dt=" + generatedAt.Format(time.DateOnly)
	return path.Join(baseDir, partition, fmt.Sprintf("forecast_%s_%s.parquet", generatedAt.Format("20060102150405"), runID))
}

func encode(runID string, records []model.ForecastRecord, generatedAt time.Time, codec parquet.CompressionCodec) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(model.ForecastExport), 1)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = codec

	var errs *multierror.Error
	for _, r := range records {
		if werr := pw.Write(model.NewForecastExport(runID, r, generatedAt)); werr != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s %s: %w", model.FormatDay(r.StayDate), r.RoomType, werr))
		}
	}

	// parquet-go panics on some malformed schemas during WriteStop.
	func() {
		defer func() {
			if r := recover(); r != nil {
				errs = multierror.Append(errs, fmt.Errorf("parquet writer panicked during WriteStop: %v", r))
			}
		}()
		if serr := pw.WriteStop(); serr != nil {
			errs = multierror.Append(errs, serr)
		}
	}()
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return buf, nil
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", name)
	}
}
