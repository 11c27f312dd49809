//go:build !linux

package power

import "github.com/cockroachdb/errors"

// Detect returns Noop on platforms without a supported inhibitor.
func Detect(_ string) (Inhibitor, error) {
	return Noop{}, errors.New("wake lock not supported on this platform")
}
