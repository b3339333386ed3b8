// Package apps holds the static application registry of the desktop.
//
// The registry is a fixed, ordered list of descriptors loaded once at
// startup, either from the built-in apps.yaml or from an override file
// (YAML or TOML). It is never mutated afterwards; window stores copy the
// descriptor fields they need when a window is created.
//
// Example Usage:
//
//	reg, err := apps.Load(cfg.Desktop.AppsFile)
//	desc, ok := reg.Lookup("music")
package apps
