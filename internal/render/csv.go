// Package render writes series responses in download formats.
package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"argstats-api/internal/model"
	"argstats-api/internal/types"
)

// bom makes spreadsheet apps read the file as UTF-8.
const bom = "\ufeff"

// SeriesCSV encodes points as a CSV document with a BOM prefix. Columns are
// date, the dimensions, the values, then variation_<value> when present.
func SeriesCSV(spec model.SeriesTable, points []types.SeriesPoint) ([]byte, error) {
	withVariations := false
	for _, p := range points {
		if p.Variations != nil {
			withVariations = true
			break
		}
	}

	header := append([]string{"date"}, spec.Dimensions...)
	header = append(header, spec.Values...)
	if withVariations {
		for _, v := range spec.Values {
			header = append(header, "variation_"+v)
		}
	}
	if spec.Provenance {
		header = append(header, "source_file", "data_type")
	}

	var buf bytes.Buffer
	buf.WriteString(bom)
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, p := range points {
		row := make([]string, 0, len(header))
		row = append(row, p.Date)
		for _, d := range spec.Dimensions {
			row = append(row, p.Dimensions[d])
		}
		for _, v := range spec.Values {
			row = append(row, deref(p.Values[v]))
		}
		if withVariations {
			for _, v := range spec.Values {
				row = append(row, deref(p.Variations[v]))
			}
		}
		if spec.Provenance {
			row = append(row, p.SourceFile, p.DataType)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV sends body as an attachment named filename.
func WriteCSV(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Filename names a download after the series and query type.
func Filename(series, queryType string) string {
	return fmt.Sprintf("%s-%s.csv", series, queryType)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
