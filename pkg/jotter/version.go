// Package jotter holds build metadata for the jotter module.
package jotter

// Version is the release version, overridable at link time with
// -ldflags "-X github.com/mesh-intelligence/jotter/pkg/jotter.Version=...".
var Version = "0.1.0"
