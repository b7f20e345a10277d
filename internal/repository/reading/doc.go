// Package reading keeps the last-known snapshot shared by the sampler and the
// upload jobs. Only the latest value is retained; there is no history.
package reading
