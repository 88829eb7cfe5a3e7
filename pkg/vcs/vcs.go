// Copyright © 2018 One Concern

// Package vcs describes the version control operations datalink relies on.
package vcs

import (
	"context"
)

// AnnexFile describes how git-annex stores a file
type AnnexFile struct {
	Path    string
	Tracked bool // the content is in the annex
	Present bool // the content is available in this working copy
	Backend string
	Key     string
	Size    int64
}

// Facade to a version-controlled working copy
type Facade interface {
	// Init a working copy at path, optionally with git-annex. The description names the annex repository.
	Init(ctx context.Context, path, description string, annex bool) error

	// Status in porcelain format, one line per changed file
	Status(ctx context.Context) ([]string, error)

	// Add changes to the index. With all, untracked files are added too.
	Add(ctx context.Context, all bool) error

	Commit(ctx context.Context, message string) error
	Checkout(ctx context.Context, ref string) error

	// ListTrackedFiles relative to the top level folder
	ListTrackedFiles(ctx context.Context) ([]string, error)

	TopLevelPath(ctx context.Context) (string, error)

	// CommitHash of HEAD, in short form
	CommitHash(ctx context.Context) (string, error)

	// AnnexBackend configured for the working copy
	AnnexBackend(ctx context.Context) (string, error)
	AnnexInfo(ctx context.Context, path string) (AnnexFile, error)
}
