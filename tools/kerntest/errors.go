package main

import "fmt"

type errUnknownLogFormat string

func (e errUnknownLogFormat) Error() string {
	return fmt.Sprintf("unknown log format %q", string(e))
}
