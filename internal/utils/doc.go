// Package utils holds the command-line plumbing shared by depflow commands:
// layered Viper configuration, zap logger construction and small flag and
// path helpers.
package utils
