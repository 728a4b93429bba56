//go:build !unix

package terminal

import (
	"errors"
	"time"
)

func waitReadable(int, time.Duration) (bool, error) {
	return false, errors.New("input polling is not supported on this platform")
}
