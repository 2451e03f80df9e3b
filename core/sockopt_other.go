//go:build !linux && !darwin

package core

import "time"

// setSockopts is a no-op; the runtime defaults apply.
func setSockopts(fd uintptr, idle time.Duration) error {
	return nil
}
