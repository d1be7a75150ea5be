// Package io abstracts the filesystem probing the pipeline performs, so
// tests can run against fakes.
package io

import (
	"os"
)

// FileIO is an interface for the file probing needed around sidecar and
// artwork files.
type FileIO interface {
	Stat(target string) (os.FileInfo, error)
}

var _ FileIO = (*SidecarFileSystem)(nil)

// SidecarFileSystem is the default implementation of FileIO using the os
// package.
type SidecarFileSystem struct{}

// Stat is a wrapper around os.Stat
func (s *SidecarFileSystem) Stat(target string) (os.FileInfo, error) {
	return os.Stat(target)
}
