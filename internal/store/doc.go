// Package store defines the persistence interfaces and shared errors used by
// the task pipeline. Concrete implementations live under internal/platform.
package store
