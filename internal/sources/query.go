// Package sources models the per-jurisdiction query catalog.
package sources

import (
	"fmt"
	"net/http"
	"strings"

	"HealthFetcher/internal/domain"
	"HealthFetcher/internal/extract"
)

// QueryType selects how a response body is decoded.
type QueryType string

const (
	TypeArcGIS QueryType = "arcgis"
	TypeJSON   QueryType = "json"
	TypeCKAN   QueryType = "ckan"
	TypeSODA   QueryType = "soda"
	TypeCSV    QueryType = "csv"
	TypeHTML   QueryType = "html"
	TypeSoup   QueryType = "html:soup"
	TypeXLSX   QueryType = "xlsx"
	// TypeURL hands the URL itself to the adapter without fetching.
	TypeURL QueryType = "url"
)

var queryTypes = map[QueryType]struct{}{
	TypeArcGIS: {}, TypeJSON: {}, TypeCKAN: {}, TypeSODA: {},
	TypeCSV: {}, TypeHTML: {}, TypeSoup: {}, TypeXLSX: {}, TypeURL: {},
}

// ParseQueryType rejects types the fetcher cannot decode.
func ParseQueryType(s string) (QueryType, error) {
	t := QueryType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := queryTypes[t]; !ok {
		return "", fmt.Errorf("unknown query type %q", s)
	}
	return t, nil
}

// JSON reports whether the body is a JSON document.
func (t QueryType) JSON() bool {
	switch t {
	case TypeArcGIS, TypeJSON, TypeCKAN, TypeSODA:
		return true
	}
	return false
}

// Query is one upstream request of a source.
type Query struct {
	URL       string
	Type      QueryType
	Params    map[string]string
	Method    string
	Path      extract.Path
	Constants []domain.Constant
	// Header marks the first CSV row as column names.
	Header   bool
	Encoding string
	Sheet    string
	Desc     string
}

// HTTPMethod is the request method, GET unless configured.
func (q Query) HTTPMethod() string {
	if q.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(q.Method)
}

// DataPath is the configured path, or the feature-service layout for arcgis queries.
func (q Query) DataPath() extract.Path {
	if len(q.Path) == 0 && q.Type == TypeArcGIS {
		return extract.ArcGISPath
	}
	return q.Path
}
