package model

import (
	"path/filepath"
	"strings"
)

// ContentCopy is one physical location of a linked data set's content
type ContentCopy struct {
	ExternalDMSID      string `json:"externalDmsId" yaml:"externalDmsId"`
	ExternalDMSAddress string `json:"externalDmsAddress,omitempty" yaml:"externalDmsAddress,omitempty"`
	Path               string `json:"path" yaml:"path"`
	GitCommitHash      string `json:"gitCommitHash,omitempty" yaml:"gitCommitHash,omitempty"`
	GitRepositoryID    string `json:"gitRepositoryId,omitempty" yaml:"gitRepositoryId,omitempty"`
	_                  struct{}
}

// NewContentCopy builds a content copy, checking that the location is fully specified
func NewContentCopy(externalDMSID, address, pth, commitHash, repositoryID string) (ContentCopy, error) {
	var missing []string
	if externalDMSID == "" {
		missing = append(missing, "external_dms_id")
	}
	if pth == "" {
		missing = append(missing, "path")
	}
	if len(missing) > 0 {
		return ContentCopy{}, ErrMissingField.WrapMessage("content copy: %s", strings.Join(missing, ", "))
	}
	return ContentCopy{
		ExternalDMSID:      externalDMSID,
		ExternalDMSAddress: address,
		Path:               filepath.Clean(pth),
		GitCommitHash:      commitHash,
		GitRepositoryID:    repositoryID,
	}, nil
}

// SameLocation tells if two content copies point to the same place.
//
// The commit hash is not part of the comparison.
func (c ContentCopy) SameLocation(other ContentCopy) bool {
	return c.ExternalDMSID == other.ExternalDMSID && filepath.Clean(c.Path) == filepath.Clean(other.Path)
}

// Hostname of the location holding this copy
func (c ContentCopy) Hostname() string {
	return ExternalDMS{Address: c.ExternalDMSAddress}.Hostname()
}

// ContentCopies is the list of content copies of a data set
type ContentCopies []ContentCopy

// Without the content copy at the same location as cc
func (copies ContentCopies) Without(cc ContentCopy) ContentCopies {
	var res ContentCopies
	for _, c := range copies {
		if !c.SameLocation(cc) {
			res = append(res, c)
		}
	}
	return res
}
