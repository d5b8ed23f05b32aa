// Package timefmt converts between the strptime/strftime patterns used in
// source mappings and Go time values.
package timefmt

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

var directives = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "1",
	'd': "2",
	'e': "_2",
	'H': "15",
	'I': "3",
	'M': "4",
	'S': "5",
	'p': "PM",
	'b': "Jan",
	'h': "Jan",
	'B': "January",
	'a': "Mon",
	'A': "Monday",
	'j': "002",
	'z': "-0700",
	'Z': "MST",
	'T': "15:04:05",
	'F': "2006-01-02",
}

// tokens that Go would read as layout elements if they appeared as literal text
var reservedLiterals = []string{"Jan", "Mon", "MST", "PM", "pm"}

var layouts sync.Map

// ToLayout translates a strptime pattern into a Go reference layout.
// Numeric directives translate to their unpadded Go forms so both "4/7/2020"
// and "04/07/2020" parse with "%m/%d/%Y".
func ToLayout(pattern string) (string, error) {
	if cached, ok := layouts.Load(pattern); ok {
		return cached.(string), nil
	}

	var (
		out     strings.Builder
		literal strings.Builder
	)
	flush := func() error {
		text := literal.String()
		literal.Reset()
		if strings.ContainsAny(text, "0123456789") {
			return fmt.Errorf("pattern %q: literal %q contains digits", pattern, text)
		}
		for _, tok := range reservedLiterals {
			if strings.Contains(text, tok) {
				return fmt.Errorf("pattern %q: literal %q clashes with layout token %q", pattern, text, tok)
			}
		}
		out.WriteString(text)
		return nil
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			literal.WriteByte(c)
			continue
		}
		if i+1 >= len(pattern) {
			return "", fmt.Errorf("pattern %q: dangling %%", pattern)
		}
		i++
		d := pattern[i]
		if d == '%' {
			literal.WriteByte('%')
			continue
		}
		if d == 'f' {
			text := literal.String()
			if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, ",") {
				return "", fmt.Errorf("pattern %q: %%f must follow a decimal separator", pattern)
			}
			literal.Reset()
			literal.WriteString(text[:len(text)-1])
			if err := flush(); err != nil {
				return "", err
			}
			out.WriteString(".999999")
			continue
		}
		layout, ok := directives[d]
		if !ok {
			return "", fmt.Errorf("pattern %q: unsupported directive %%%c", pattern, d)
		}
		if err := flush(); err != nil {
			return "", err
		}
		out.WriteString(layout)
	}
	if err := flush(); err != nil {
		return "", err
	}

	result := out.String()
	layouts.Store(pattern, result)
	return result, nil
}

// Parse reads value with a strptime pattern in loc.
func Parse(value, pattern string, loc *time.Location) (time.Time, error) {
	layout, err := ToLayout(pattern)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(layout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q with %q: %w", value, pattern, err)
	}
	return t, nil
}
