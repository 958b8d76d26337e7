// Package version holds the build version, overridden with -ldflags.
package version

// Version is the running build.
var Version = "dev"
