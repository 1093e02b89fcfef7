// Package task implements the consumer side of the pipeline: it drives a
// delivered task through its processing state machine, keeps the status
// cache coherent with every store write, and finalizes terminal states
// after the transport's retries are exhausted.
package task
