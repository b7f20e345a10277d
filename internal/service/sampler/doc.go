// Package sampler runs the periodic read, evaluate and upload cycle.
package sampler
