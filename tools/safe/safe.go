package safe

import (
	"chatgate/logger"
)

// Go starts a goroutine that recovers from panic, so a panicking
// background task does not take the process down with it.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
