package trace

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jszwec/csvutil"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/exp/slog"
)

// Sink receives trace records.
type Sink interface {
	Write(ctx context.Context, r Record) error
}

// Logger is a Sink logging records at debug level.
type Logger struct {
	Logger *slog.Logger
}

func (l Logger) Write(ctx context.Context, r Record) error {
	l.Logger.LogAttrs(ctx, slog.LevelDebug, r.Func,
		slog.Uint64("seq", r.Seq),
		slog.String("instance", r.Instance.String()),
		slog.String("args", r.Args),
		slog.String("result", r.Result),
		slog.String("errno", r.Errno),
		slog.Duration("duration", r.Duration),
	)
	return nil
}

// Multi returns a Sink writing records to all sinks. All the sinks are
// written to even when one of them fails.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

type multi []Sink

func (m multi) Write(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CSV is a Sink encoding records as CSV, with a header line.
type CSV struct {
	mutex   sync.Mutex
	writer  *csv.Writer
	encoder *csvutil.Encoder
}

// NewCSV returns a CSV sink writing to w. Records are buffered until Flush
// is called.
func NewCSV(w io.Writer) *CSV {
	writer := csv.NewWriter(w)
	return &CSV{writer: writer, encoder: csvutil.NewEncoder(writer)}
}

func (c *CSV) Write(ctx context.Context, r Record) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.encoder.Encode(r)
}

// Flush writes the buffered records.
func (c *CSV) Flush() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.writer.Flush()
	return c.writer.Error()
}

// File is a CSV sink writing to a file.
type File struct {
	*CSV
	buffer *bufio.Writer
	zstd   *zstd.Encoder
	file   *os.File
}

// Create creates a trace file at path. The records are compressed with
// zstd when the path has a ".zst" suffix.
func Create(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	file := &File{file: f, buffer: bufio.NewWriter(f)}
	var w io.Writer = file.buffer
	if strings.HasSuffix(path, ".zst") {
		file.zstd, err = zstd.NewWriter(w)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("trace %s: %w", path, err)
		}
		w = file.zstd
	}
	file.CSV = NewCSV(w)
	return file, nil
}

// Close flushes the records and closes the file.
func (f *File) Close() error {
	errs := []error{f.Flush()}
	if f.zstd != nil {
		errs = append(errs, f.zstd.Close())
	}
	errs = append(errs, f.buffer.Flush(), f.file.Close())
	return errors.Join(errs...)
}

// ReadFile reads the records of a trace file written by Create.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".zst") {
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("trace %s: %w", path, err)
		}
		defer d.Close()
		r = d
	}
	records, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("trace %s: %w", path, err)
	}
	return records, nil
}

// Read decodes CSV records.
func Read(r io.Reader) ([]Record, error) {
	decoder, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	for {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, err
		}
		records = append(records, record)
	}
}
