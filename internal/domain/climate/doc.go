// Package climate contains the core domain types of the station.
//
// Readings are kept in tenths of a unit (°C×10, %RH×10), the resolution the
// sensor driver produces, so thresholds compare as plain integers.
package climate
