// Package vmr models the metadata files that describe how product repositories
// are laid out inside the virtual monolithic repository.
package vmr
