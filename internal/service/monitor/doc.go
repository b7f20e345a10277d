// Package monitor runs the climate station: it samples the sensor, sounds the
// buzzer on threshold breaches, uploads readings and optionally serves the
// gRPC status endpoint.
package monitor
