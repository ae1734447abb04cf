// Package sheet fetches rows from a published spreadsheet CSV export.
package sheet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"argstats-api/pkg/reconcile"
	"argstats-api/pkg/source"
)

const typeName = "sheet"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Fetcher GETs a CSV export and turns each data row into a Raw keyed by header.
type Fetcher struct {
	name   string
	url    string
	getter *source.HTTPGetter
}

// New constructs a sheet fetcher.
func New(name string, cfg *source.FetcherConfig, opts ...source.GetterOption) *Fetcher {
	return &Fetcher{name: name, url: cfg.URL, getter: source.NewHTTPGetter(cfg, opts...)}
}

func init() {
	source.RegisterFetcher(typeName, func(name string, cfg *source.FetcherConfig) (source.Fetcher, error) {
		return New(name, cfg), nil
	})
}

func (f *Fetcher) Name() string { return f.name }

// Fetch implements source.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context) ([]reconcile.Raw, error) {
	body, err := f.getter.Get(ctx, f.url)
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", f.name, err)
	}
	rows, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sheet %s: %w", f.name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s: %w", f.name, source.ErrNoRecords)
	}
	return rows, nil
}

// Parse reads a CSV document whose first row is the header. The delimiter is
// ';' when the header has more semicolons than commas, ',' otherwise. Blank
// rows are skipped.
func Parse(r io.Reader) ([]reconcile.Raw, error) {
	br := bufio.NewReaderSize(r, 8192)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	firstLine, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("peek header: %w", err)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = detectDelimiter(firstLine)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []reconcile.Raw
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blank(record) {
			continue
		}
		row := make(reconcile.Raw, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func detectDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
