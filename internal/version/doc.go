// Package version exposes build metadata of climate-alarm.
//
// Version, Commit and BuildTime are set through -ldflags at release time.
package version
