// Package service implements the task pipeline's inbound contract:
// submission, status lookup, listing and statistics. It coordinates the
// task store, the queue transport, the status cache and the metrics
// recorder on behalf of the transport-agnostic API layer.
package service
