// Package assets resolves the NuGet feed locations of declared dependencies
// by matching their commits against builds recorded in the build registry.
package assets
