// Package errors provides the classified error primitives used across towerbuild.
//
// Every failure the simulator can surface belongs to one of a small set of
// categories that mirror the run's error taxonomy: resources that cannot be
// created, tasks that cannot be spawned, journal sinks that cannot be opened,
// and invalid configuration. None of them is retried.
//
// Example usage:
//
//	err := errors.SpawnError("runner refused task").
//		WithContext("phase", 3).
//		WithContext("unit", 2).
//		WithCause(runErr).
//		Build()
package errors
