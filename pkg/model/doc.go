// Copyright © 2018 One Concern

// Package model describes the base objects manipulated by datalink.
//
// The object model for datalink is composed of:
//
//  Repository identity:
//    The identity of a working copy: a random repository id, the id of the external data
//    management system for its physical location, and the id of the last data set created from it.
//
//  External DMS:
//    A catalog record identifying one storage location (user, host, path) that may host content copies.
//
//  Data sets:
//    The catalog's versioned unit. Each commit creates a new linked data set whose parent is the previous one.
//
//  Content copies:
//    One physical location (host, path, commit hash) holding a copy of a data set's content.
package model
