// Package queue provides the task queue transport: an ordered, at-least-once
// delivery channel carrying task identifiers from submission to processing.
// The queue owns redelivery: failed deliveries whose error matches the retry
// policy are rescheduled with exponential backoff, and exhausted or
// non-retryable deliveries are routed to a dead-letter handler.
package queue
