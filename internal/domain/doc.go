// Package domain holds the service-level error values shared by the
// escapetime server, its configuration layer and the CLI.
//
// Kernel errors (invalid view parameters, exceeded limits) live in
// pkg/fractal; this package only covers what surrounds the kernel.
package domain
