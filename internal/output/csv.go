package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CSVSink writes one line per row with a "time,<columns>" header. Every
// row is flushed so a failed run keeps what it recorded.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
	buf    []string
}

// NewCSVSink writes to w. If w is an io.Closer it is closed with the sink.
func NewCSVSink(w io.Writer) *CSVSink {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// CreateCSV creates (or truncates) the file at path.
func CreateCSV(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return NewCSVSink(f), nil
}

func (s *CSVSink) Open(_ context.Context, columns []string) error {
	s.buf = make([]string, len(columns)+1)
	header := append([]string{"time"}, columns...)
	return s.flush(header)
}

func (s *CSVSink) Write(_ context.Context, row Row) error {
	s.buf[0] = formatFloat(row.Time)
	for i, v := range row.Values {
		s.buf[i+1] = formatFloat(v)
	}
	return s.flush(s.buf)
}

func (s *CSVSink) flush(record []string) error {
	if err := s.w.Write(record); err != nil {
		return fmt.Errorf("csv output: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("csv output: %w", err)
	}
	return nil
}

func (s *CSVSink) Close(context.Context) error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
