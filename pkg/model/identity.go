package model

import (
	"crypto/sha1" // #nosec
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RepositoryIdentity ties a working copy to the catalog.
type RepositoryIdentity struct {
	RepositoryID  string `json:"id,omitempty" yaml:"id,omitempty"`
	ExternalDMSID string `json:"external_dms_id,omitempty" yaml:"external_dms_id,omitempty"`
	DataSetID     string `json:"data_set_id,omitempty" yaml:"data_set_id,omitempty"`
	_             struct{}
}

// IsIdentified tells if the repository and location ids are both set
func (r RepositoryIdentity) IsIdentified() bool {
	return r.RepositoryID != "" && r.ExternalDMSID != ""
}

// IsSynchronized tells if a data set has been created from this working copy
func (r RepositoryIdentity) IsSynchronized() bool {
	return r.IsIdentified() && r.DataSetID != ""
}

// NewRepositoryID generates a random repository id
func NewRepositoryID() string {
	return uuid.New().String()
}

// Location is a physical location for a working copy
type Location struct {
	User     string
	Hostname string
	Path     string // absolute
}

// ExternalDMSID is deterministic for a given user, host and path.
//
// Two locations with colliding path hashes for the same user and host share the same id.
func (l Location) ExternalDMSID() string {
	h := sha1.Sum([]byte(l.Path)) // #nosec
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s", l.User, l.Hostname, hex.EncodeToString(h[:])[:8]))
}

// Address of the location, as registered with the catalog
func (l Location) Address() string {
	return l.Hostname + ":" + l.Path
}

// ExternalDMS builds the catalog record for this location
func (l Location) ExternalDMS() ExternalDMS {
	return ExternalDMS{
		Code:        l.ExternalDMSID(),
		Label:       l.Address(),
		Address:     l.Address(),
		AddressType: AddressTypeFileSystem,
	}
}

// Validate a location
func (l Location) Validate() error {
	var missing []string
	if l.User == "" {
		missing = append(missing, "user")
	}
	if l.Hostname == "" {
		missing = append(missing, "hostname")
	}
	if l.Path == "" {
		missing = append(missing, "path")
	}
	if len(missing) > 0 {
		return ErrMissingField.WrapMessage("location: %s", strings.Join(missing, ", "))
	}
	return nil
}
