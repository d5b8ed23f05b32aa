package fetch

import "fmt"

// TransportError reports a failure to retrieve or decode a source's response.
type TransportError struct {
	Source string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: fetch %s: http status %d", e.Source, e.URL, e.Status)
	}
	return fmt.Sprintf("%s: fetch %s: %v", e.Source, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
