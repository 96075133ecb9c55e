// Package output writes spectra and line tables and hands curves to a plotter.
package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ramanspec/internal/storage"
)

// Number formats
const (
	CrossFormat    = "%.8e"  // raw line tables
	SpectrumFormat = "%.18e" // sampled spectra
)

// Table is a set of equally long columns with a header row
type Table struct {
	Name    string
	Header  []string
	Columns [][]float64
	Format  string
}

// Rows returns the number of data rows
func (t Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0])
}

// Validate checks that header and columns line up
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table has no name")
	}
	if len(t.Header) != len(t.Columns) {
		return fmt.Errorf("table %s: %d header fields for %d columns", t.Name, len(t.Header), len(t.Columns))
	}
	for i, c := range t.Columns {
		if len(c) != t.Rows() {
			return fmt.Errorf("table %s: column %d has %d rows, expected %d", t.Name, i, len(c), t.Rows())
		}
	}
	return nil
}

// EncodeCSV writes the header and rows of t as comma separated values
func EncodeCSV(w io.Writer, t Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	format := t.Format
	if format == "" {
		format = SpectrumFormat
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for i := 0; i < t.Rows(); i++ {
		for j, c := range t.Columns {
			record[j] = fmt.Sprintf(format, c[i])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TableWriter stores a table and returns where it went
type TableWriter interface {
	WriteTable(ctx context.Context, t Table) (string, error)
}

// DirWriter writes tables as files into a directory
type DirWriter struct {
	Dir string
}

// NewDirWriter creates a writer for dir
func NewDirWriter(dir string) *DirWriter {
	return &DirWriter{Dir: dir}
}

// WriteTable writes t to Dir/t.Name
func (w *DirWriter) WriteTable(ctx context.Context, t Table) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := filepath.Join(w.Dir, t.Name)
	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", p, err)
	}
	if err := EncodeCSV(f, t); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", p, err)
	}
	log.Debug().Str("path", p).Int("rows", t.Rows()).Msg("Table written")
	return p, nil
}

// ObjectWriter uploads tables to object storage under a key prefix
type ObjectWriter struct {
	store  storage.ObjectStore
	prefix string
}

// NewObjectWriter creates a writer that stores tables under prefix
func NewObjectWriter(store storage.ObjectStore, prefix string) *ObjectWriter {
	return &ObjectWriter{store: store, prefix: prefix}
}

// WriteTable uploads t and returns its object key
func (w *ObjectWriter) WriteTable(ctx context.Context, t Table) (string, error) {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, t); err != nil {
		return "", err
	}
	key := path.Join(w.prefix, t.Name)
	if err := w.store.UploadFile(ctx, key, "text/csv", buf.Bytes()); err != nil {
		return "", err
	}
	log.Debug().Str("key", key).Int("rows", t.Rows()).Msg("Table uploaded")
	return key, nil
}
