// Copyright © 2018 One Concern

// Package config resolves datalink settings across a global and a local location.
//
// Each location holds a public and a private subtree of flat JSON documents, one per category.
// Public local settings are committed with the working copy. Private settings, such as the
// repository identity, never leave the machine.
//
// Resolution scans the search order (global, then local) and keeps the last value found.
package config
