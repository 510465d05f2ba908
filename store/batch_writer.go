package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
)

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("batch writer is closed")

// Batch describes one published episode file.
type Batch struct {
	Path string
	Rows int
}

type openBatch struct {
	name string
	file *os.File
	pw   *parquet.GenericWriter[EpisodeRow]
	rows int
}

// BatchWriter streams episode rows into Parquet files under dir/tmp and
// moves each file into dir once it holds perFile rows. Readers of dir only
// ever see complete files. A perFile of zero never rotates.
type BatchWriter struct {
	dir     string
	perFile int
	run     int64
	seq     int
	cur     *openBatch
	closed  bool
}

func NewBatchWriter(dir string, perFile int) (*BatchWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("output dir is required")
	}
	if perFile < 0 {
		return nil, fmt.Errorf("rows per file must be >= 0, got %d", perFile)
	}
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}
	return &BatchWriter{dir: dir, perFile: perFile, run: time.Now().UnixNano()}, nil
}

// Pending is the number of rows written to the unpublished file.
func (w *BatchWriter) Pending() int {
	if w.cur == nil {
		return 0
	}
	return w.cur.rows
}

// Write appends row. When the row fills the current file, that file is
// published and returned.
func (w *BatchWriter) Write(row EpisodeRow) (*Batch, error) {
	if w.closed {
		return nil, ErrWriterClosed
	}
	if w.cur == nil {
		if err := w.open(); err != nil {
			return nil, err
		}
	}
	if _, err := w.cur.pw.Write([]EpisodeRow{row}); err != nil {
		return nil, fmt.Errorf("write %s: %w", w.cur.name, err)
	}
	w.cur.rows++
	if w.perFile > 0 && w.cur.rows >= w.perFile {
		return w.publish()
	}
	return nil, nil
}

// Flush publishes the current file early. It returns nil when nothing is
// pending.
func (w *BatchWriter) Flush() (*Batch, error) {
	if w.cur == nil {
		return nil, nil
	}
	return w.publish()
}

// Close publishes any pending rows. Later writes fail.
func (w *BatchWriter) Close() (*Batch, error) {
	if w.closed {
		return nil, nil
	}
	w.closed = true
	return w.Flush()
}

func (w *BatchWriter) open() error {
	w.seq++
	name := fmt.Sprintf("episodes_%d_%05d.parquet", w.run, w.seq)
	f, err := os.OpenFile(w.tmpPath(name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open tmp parquet: %w", err)
	}
	w.cur = &openBatch{
		name: name,
		file: f,
		pw:   parquet.NewGenericWriter[EpisodeRow](f, writerOptions()...),
	}
	return nil
}

func (w *BatchWriter) tmpPath(name string) string {
	return filepath.Join(w.dir, "tmp", name)
}

func (w *BatchWriter) publish() (*Batch, error) {
	b := w.cur
	w.cur = nil
	tmp := w.tmpPath(b.name)

	err := b.pw.Close()
	if err == nil {
		err = b.file.Sync()
	}
	if cerr := b.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("finish %s: %w", b.name, err)
	}
	if b.rows == 0 {
		_ = os.Remove(tmp)
		return nil, nil
	}
	out := filepath.Join(w.dir, b.name)
	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("publish %s: %w", b.name, err)
	}
	return &Batch{Path: out, Rows: b.rows}, nil
}

// WriteEpisodesParquetAtomic publishes rows as a single file.
func WriteEpisodesParquetAtomic(dir string, rows []EpisodeRow) (string, error) {
	w, err := NewBatchWriter(dir, 0)
	if err != nil {
		return "", err
	}
	for _, r := range rows {
		if _, err := w.Write(r); err != nil {
			_, _ = w.Close()
			return "", err
		}
	}
	b, err := w.Close()
	if err != nil || b == nil {
		return "", err
	}
	return b.Path, nil
}
