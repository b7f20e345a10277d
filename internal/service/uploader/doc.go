// Package uploader forwards snapshots to a remote service without blocking
// the sampling loop.
//
// Jobs run on a fixed set of workers fed by a bounded queue. When the queue is
// full new jobs are dropped; there is no retry.
package uploader
