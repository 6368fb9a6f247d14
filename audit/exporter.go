package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/honehone12/token-objects-marketplace/core/events"
	"github.com/honehone12/token-objects-marketplace/core/types"
)

// attributed is satisfied by every ledger event wrapper; it exposes the
// structured payload behind the event.
type attributed interface {
	Event() *types.Event
}

type auditRow struct {
	EventType  string `parquet:"name=event_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Seller     string `parquet:"name=seller, type=BYTE_ARRAY, convertedtype=UTF8"`
	Sequence   string `parquet:"name=sequence, type=BYTE_ARRAY, convertedtype=UTF8"`
	Bidder     string `parquet:"name=bidder, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price      string `parquet:"name=price, type=BYTE_ARRAY, convertedtype=UTF8"`
	Held       string `parquet:"name=held, type=BYTE_ARRAY, convertedtype=UTF8"`
	Remainder  string `parquet:"name=remainder, type=BYTE_ARRAY, convertedtype=UTF8"`
	ObservedAt string `parquet:"name=observed_at, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Exporter records every emitted ledger event and periodically writes the
// accumulated audit trail to parquet files. It implements events.Emitter so
// it can be fanned in next to the metrics emitter.
type Exporter struct {
	dir    string
	logger *slog.Logger
	nowFn  func() time.Time

	mu   sync.Mutex
	rows []auditRow
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, logger: logger, nowFn: time.Now}
}

// Emit implements the events.Emitter interface.
func (e *Exporter) Emit(event events.Event) {
	if e == nil || event == nil {
		return
	}
	payload, ok := event.(attributed)
	if !ok {
		return
	}
	evt := payload.Event()
	if evt == nil {
		return
	}
	row := auditRow{
		EventType:  evt.Type,
		Seller:     evt.Attributes["seller"],
		Sequence:   evt.Attributes["sequence"],
		Bidder:     evt.Attributes["bidder"],
		Price:      evt.Attributes["price"],
		Held:       evt.Attributes["held"],
		Remainder:  evt.Attributes["remainder"],
		ObservedAt: e.nowFn().UTC().Format(time.RFC3339),
	}
	e.mu.Lock()
	e.rows = append(e.rows, row)
	e.mu.Unlock()
}

// Pending reports the number of rows not yet flushed.
func (e *Exporter) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rows)
}

// Flush writes the accumulated rows to a timestamped parquet file and
// clears the buffer. Flushing with no rows is a no-op.
func (e *Exporter) Flush() (string, error) {
	e.mu.Lock()
	rows := e.rows
	e.rows = nil
	e.mu.Unlock()
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("audit: create dir: %w", err)
	}
	path := filepath.Join(e.dir, fmt.Sprintf("market-audit-%s.parquet", e.nowFn().UTC().Format("20060102T150405Z")))
	if err := writeParquet(path, rows); err != nil {
		// Keep the rows for the next attempt.
		e.mu.Lock()
		e.rows = append(rows, e.rows...)
		e.mu.Unlock()
		return "", err
	}
	e.logger.Info("wrote audit export", "path", path, "rows", len(rows))
	return path, nil
}

// Run flushes on the given interval until the context is cancelled, then
// performs a final flush.
func (e *Exporter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if _, err := e.Flush(); err != nil {
				e.logger.Error("final audit flush failed", "error", err.Error())
			}
			return
		case <-ticker.C:
			if _, err := e.Flush(); err != nil {
				e.logger.Error("audit flush failed", "error", err.Error())
			}
		}
	}
}

func writeParquet(path string, rows []auditRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audit: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(auditRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("audit: parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i := range rows {
		if err := pw.Write(&rows[i]); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("audit: write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("audit: finish parquet: %w", err)
	}
	return file.Close()
}
