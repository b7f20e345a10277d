// Package health exposes the sampler status as a standard gRPC health
// service and provides a small client for it.
//
// The status of ServiceName follows the latest sensor read: NOT_SERVING until
// the first success, SERVING after a success and NOT_SERVING after a failure.
package health
