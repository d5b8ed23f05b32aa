package fetch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/htmlindex"

	"HealthFetcher/internal/sources"
)

// decode turns a body into the shape the adapters expect for its query type:
// JSON documents keep numbers as json.Number, CSV and Excel rows become
// objects keyed by the header row.
func decode(q sources.Query, body []byte) (any, error) {
	switch {
	case q.Type.JSON():
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return v, nil
	case q.Type == sources.TypeXLSX:
		return decodeXLSX(body, q.Sheet)
	}

	text, err := transcode(body, q.Encoding)
	if err != nil {
		return nil, err
	}
	switch q.Type {
	case sources.TypeCSV:
		return decodeCSV(text, q.Header)
	case sources.TypeHTML:
		return string(text), nil
	case sources.TypeSoup:
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("cannot decode query type %q", q.Type)
}

func transcode(body []byte, name string) ([]byte, error) {
	if name == "" {
		return body, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", name, err)
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}

func decodeCSV(text []byte, header bool) ([]any, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		out  []any
		cols []string
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w", err)
		}
		if !header {
			row := make([]any, len(rec))
			for i, v := range rec {
				row[i] = v
			}
			out = append(out, row)
			continue
		}
		if cols == nil {
			cols = append([]string(nil), rec...)
			continue
		}
		out = append(out, rowObject(cols, rec))
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func decodeXLSX(body []byte, sheet string) ([]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	out := []any{}
	if len(rows) == 0 {
		return out, nil
	}
	for _, rec := range rows[1:] {
		out = append(out, rowObject(rows[0], rec))
	}
	return out, nil
}

// rowObject keys cells by column name; short rows leave trailing columns empty.
func rowObject(cols, rec []string) map[string]any {
	obj := make(map[string]any, len(cols))
	for i, c := range cols {
		if i < len(rec) {
			obj[c] = rec[i]
		} else {
			obj[c] = ""
		}
	}
	return obj
}
