// Package config defines the settings of the climate-alarm binary and
// helpers to load, validate and save them in YAML format.
//
// Every field has a compiled-in default matching the stock station wiring
// constants, so the binary runs without any settings file.
package config
