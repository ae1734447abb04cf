// Package httpjson fetches rows from a JSON document served over HTTP.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"argstats-api/pkg/reconcile"
	"argstats-api/pkg/source"
)

const typeName = "httpjson"

// Fetcher GETs url and returns the objects found at recordsPath.
type Fetcher struct {
	name        string
	url         string
	recordsPath []string
	getter      *source.HTTPGetter
}

// New constructs a JSON fetcher.
func New(name string, cfg *source.FetcherConfig, opts ...source.GetterOption) *Fetcher {
	var path []string
	if p := strings.Trim(cfg.RecordsPath, "."); p != "" {
		path = strings.Split(p, ".")
	}
	return &Fetcher{
		name:        name,
		url:         cfg.URL,
		recordsPath: path,
		getter:      source.NewHTTPGetter(cfg, opts...),
	}
}

func init() {
	source.RegisterFetcher(typeName, func(name string, cfg *source.FetcherConfig) (source.Fetcher, error) {
		return New(name, cfg), nil
	})
}

func (f *Fetcher) Name() string { return f.name }

// Fetch implements source.Fetcher. Numbers are kept as json.Number so no
// precision is lost before decimal parsing.
func (f *Fetcher) Fetch(ctx context.Context) ([]reconcile.Raw, error) {
	body, err := f.getter.Get(ctx, f.url)
	if err != nil {
		return nil, fmt.Errorf("httpjson %s: %w", f.name, err)
	}
	rows, err := Decode(body, f.recordsPath)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("httpjson %s: %w", f.name, source.ErrNoRecords)
	}
	return rows, nil
}

// Decode extracts the row array at path from a JSON document.
func Decode(body []byte, path []string) ([]reconcile.Raw, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("httpjson: decode: %w", err)
	}

	node := doc
	for _, key := range path {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("httpjson: path segment %q is not inside an object", key)
		}
		node, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("httpjson: path segment %q not found", key)
		}
	}

	if node == nil {
		return nil, nil
	}
	items, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("httpjson: expected an array at %q, got %T", strings.Join(path, "."), node)
	}
	rows := make([]reconcile.Raw, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, reconcile.Raw(obj))
	}
	return rows, nil
}
