// Package buildregistry reads assets and builds from a Maestro-style build
// registry.
package buildregistry
