package matcher

import "fmt"

// DataSourceError reports a failure of a road source. The processor returns
// it to the caller as is.
type DataSourceError struct {
	Source string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("road source %s: %v", e.Source, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
