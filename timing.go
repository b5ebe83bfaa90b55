// FILE: lixenwraith/crossprefs/timing.go
package crossprefs

import "time"

// Timing of the defaults file watcher.
const (
	SpinWaitInterval     = 5 * time.Millisecond   // busy-wait quantum while stopping
	MinPollInterval      = 100 * time.Millisecond // floor for file stat polling
	ShutdownTimeout      = 100 * time.Millisecond // wait for the poll loop to exit
	DefaultDebounce      = 500 * time.Millisecond // coalesce bursts of writes
	DefaultPollInterval  = time.Second
	DefaultReloadTimeout = 5 * time.Second
)
