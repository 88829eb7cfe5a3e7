// Copyright © 2018 One Concern

// Package storage provides interface to handle backend storage objects.
//
// Datalink keeps its configuration documents and its command log in such stores.
//
// This package supports the following backends:
//   - local file system (any afero.Fs, atomic or not)
package storage
