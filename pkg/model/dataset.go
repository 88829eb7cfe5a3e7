package model

import (
	"strings"
)

// DataSetKind is the kind of data set as known by the catalog
type DataSetKind string

// Data set kinds
const (
	KindPhysical  DataSetKind = "PHYSICAL"
	KindContainer DataSetKind = "CONTAINER"
	KindLink      DataSetKind = "LINK"
)

// AddressTypeFileSystem is the address type of the locations registered by datalink
const AddressTypeFileSystem = "FILE_SYSTEM"

// ExternalDMS is a storage location registered with the catalog
type ExternalDMS struct {
	Code        string `json:"code" yaml:"code"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Address     string `json:"address" yaml:"address"`
	AddressType string `json:"addressType" yaml:"addressType"`
	_           struct{}
}

// Hostname part of the address
func (e ExternalDMS) Hostname() string {
	host, _ := e.split()
	return host
}

// Path part of the address
func (e ExternalDMS) Path() string {
	_, pth := e.split()
	return pth
}

func (e ExternalDMS) split() (string, string) {
	parts := strings.SplitN(e.Address, ":", 2)
	if len(parts) < 2 {
		return "", e.Address
	}
	return parts[0], parts[1]
}

// FileEntry is one line of a data set manifest
type FileEntry struct {
	Path          string `json:"path" yaml:"path"`
	FileLength    int64  `json:"fileLength" yaml:"fileLength"`
	Checksum      string `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	ChecksumType  string `json:"checksumType,omitempty" yaml:"checksumType,omitempty"`
	ChecksumCRC32 uint32 `json:"checksumCRC32,omitempty" yaml:"checksumCRC32,omitempty"`
	Directory     bool   `json:"directory,omitempty" yaml:"directory,omitempty"`
	_             struct{}
}

// Manifest is the list of files of a data set
type Manifest []FileEntry

// Files without directories
func (m Manifest) Files() Manifest {
	res := make(Manifest, 0, len(m))
	for _, e := range m {
		if !e.Directory {
			res = append(res, e)
		}
	}
	return res
}

// Lookup an entry by its path
func (m Manifest) Lookup(pth string) (FileEntry, bool) {
	for _, e := range m {
		if e.Path == pth {
			return e, true
		}
	}
	return FileEntry{}, false
}

// DataSet as stored in the catalog
type DataSet struct {
	ID            string            `json:"permId" yaml:"permId"`
	Type          string            `json:"type" yaml:"type"`
	Kind          DataSetKind       `json:"kind" yaml:"kind"`
	Properties    map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Parents       []string          `json:"parents,omitempty" yaml:"parents,omitempty"`
	SampleID      string            `json:"sample,omitempty" yaml:"sample,omitempty"`
	ExperimentID  string            `json:"experiment,omitempty" yaml:"experiment,omitempty"`
	ContentCopies []ContentCopy     `json:"contentCopies,omitempty" yaml:"contentCopies,omitempty"`
	Files         Manifest          `json:"files,omitempty" yaml:"files,omitempty"`
	_             struct{}
}

// IsLink tells if the data set content is held in external locations
func (d DataSet) IsLink() bool {
	return d.Kind == KindLink
}

// ContentCopy at some index.
//
// A negative index selects the only content copy, and is ambiguous if there are several.
func (d DataSet) ContentCopy(index int) (ContentCopy, error) {
	if index < 0 {
		switch len(d.ContentCopies) {
		case 0:
			return ContentCopy{}, ErrInvalidIndex.WrapMessage("data set %s has no content copy", d.ID)
		case 1:
			return d.ContentCopies[0], nil
		default:
			return ContentCopy{}, ErrAmbiguousIndex.WrapMessage("data set %s has %d content copies", d.ID, len(d.ContentCopies))
		}
	}
	if index >= len(d.ContentCopies) {
		return ContentCopy{}, ErrInvalidIndex.WrapMessage("index %d, data set %s has %d content copies", index, d.ID, len(d.ContentCopies))
	}
	return d.ContentCopies[index], nil
}

// FindContentCopy finds the content copy at the same location as cc
func (d DataSet) FindContentCopy(cc ContentCopy) (ContentCopy, bool) {
	for _, c := range d.ContentCopies {
		if c.SameLocation(cc) {
			return c, true
		}
	}
	return ContentCopy{}, false
}

// DataSetCreation holds what is needed to create a new linked data set
type DataSetCreation struct {
	Code          string            `json:"code,omitempty" yaml:"code,omitempty"`
	Type          string            `json:"type" yaml:"type"`
	Properties    map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Parents       []string          `json:"parents,omitempty" yaml:"parents,omitempty"`
	SampleID      string            `json:"sample,omitempty" yaml:"sample,omitempty"`
	ExperimentID  string            `json:"experiment,omitempty" yaml:"experiment,omitempty"`
	ContentCopies []ContentCopy     `json:"contentCopies" yaml:"contentCopies"`
	Files         Manifest          `json:"files,omitempty" yaml:"files,omitempty"`
	_             struct{}
}

// Validate the creation request
func (c DataSetCreation) Validate() error {
	var missing []string
	if c.Type == "" {
		missing = append(missing, "type")
	}
	if c.SampleID == "" && c.ExperimentID == "" {
		missing = append(missing, "sample or experiment")
	}
	if len(c.ContentCopies) == 0 {
		missing = append(missing, "content copy")
	}
	if len(missing) > 0 {
		return ErrMissingField.WrapMessage("data set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DownloadRequest asks the catalog for the content of one file of a content copy
type DownloadRequest struct {
	DataSetID   string
	ContentCopy ContentCopy
	Path        string // relative to the content copy
	Offset      int64
}
