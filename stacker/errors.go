package stacker

import (
	"errors"
	"fmt"
)

// ErrUnresolvableRecency means no file in a dedup key group carries a
// parseable publication timestamp, so the authoritative file cannot be chosen.
var ErrUnresolvableRecency = errors.New("no parseable publication timestamp in file set")

// ErrNoDataFiles means the input folder holds no NEON data tables at all.
var ErrNoDataFiles = errors.New("no NEON data files present in specified file path")

// AmbiguousScheduleError reports tables whose member files imply conflicting
// publication schedules, usually from mixing provisional and released data.
type AmbiguousScheduleError struct {
	Tables []string
}

func (e *AmbiguousScheduleError) Error() string {
	return fmt.Sprintf("tables %v have been published under conflicting schedules; "+
		"stack released and provisional data separately", e.Tables)
}
