package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StepKind distinguishes the three traversal steps of a Path.
type StepKind int

const (
	KeyStep StepKind = iota
	IndexStep
	WildcardStep
)

// Step is one traversal step.
type Step struct {
	Kind  StepKind
	Key   string
	Index int
}

// Key descends into an object.
func Key(name string) Step { return Step{Kind: KeyStep, Key: name} }

// Index descends into a list element.
func Index(i int) Step { return Step{Kind: IndexStep, Index: i} }

// Wildcard applies the rest of the path to every list element.
func Wildcard() Step { return Step{Kind: WildcardStep} }

func (s Step) String() string {
	switch s.Kind {
	case IndexStep:
		return "[" + strconv.Itoa(s.Index) + "]"
	case WildcardStep:
		return "[*]"
	default:
		return "." + s.Key
	}
}

// Path locates the mappable attributes inside a nested response. It is plain
// data and safe to share between goroutines.
type Path []Step

// ArcGISPath is the fixed location of feature attributes in ArcGIS feature service replies.
var ArcGISPath = Path{Key("features"), Wildcard(), Key("attributes")}

func (p Path) String() string {
	if len(p) == 0 {
		return "$"
	}
	var b strings.Builder
	b.WriteString("$")
	for _, s := range p {
		b.WriteString(s.String())
	}
	return b.String()
}

// ParsePath reads the declarative form used in source catalogs: strings are
// keys, integers are indexes and an empty list is the wildcard.
func ParsePath(raw []any) (Path, error) {
	path := make(Path, 0, len(raw))
	for i, item := range raw {
		switch v := item.(type) {
		case string:
			path = append(path, Key(v))
		case int:
			path = append(path, Index(v))
		case int64:
			path = append(path, Index(int(v)))
		case uint64:
			path = append(path, Index(int(v)))
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("path step %d: non-integer index %v", i, v)
			}
			path = append(path, Index(int(v)))
		case []any:
			if len(v) != 0 {
				return nil, fmt.Errorf("path step %d: only the empty list is a wildcard", i)
			}
			path = append(path, Wildcard())
		default:
			return nil, fmt.Errorf("path step %d: unsupported step %T", i, item)
		}
	}
	return path, nil
}
