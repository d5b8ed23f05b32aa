package timefmt

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Display formats times with a strftime pattern for presentation columns.
type Display struct {
	f *strftime.Strftime
}

// NewDisplay compiles a strftime pattern.
func NewDisplay(pattern string) (Display, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return Display{}, fmt.Errorf("display pattern %q: %w", pattern, err)
	}
	return Display{f: f}, nil
}

// Format renders t; a zero Display renders nothing.
func (d Display) Format(t time.Time) string {
	if d.f == nil {
		return ""
	}
	return d.f.FormatString(t)
}

// IsZero reports whether no pattern was compiled.
func (d Display) IsZero() bool {
	return d.f == nil
}
