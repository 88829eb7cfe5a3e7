package config

import (
	"context"
	"fmt"
	"strconv"

	"github.com/oneconcern/datalink/pkg/model"
)

// Settings is the typed, effective view of the settings commands need
type Settings struct {
	OpenbisURL             string
	FileserviceURL         string
	User                   string
	Hostname               string
	VerifyCertificates     bool
	AllowOnlyHTTPS         bool
	GitAnnexHashAsChecksum bool
	GitAnnexBackend        string
	ChecksumBackend        string
	DownloadWorkers        int
	DataSetType            string
	DataSetProperties      map[string]string
	ObjectID               string
	CollectionID           string
	AnalysisParent         string
}

// Settings resolves all settings
func (r *Resolver) Settings(ctx context.Context) (Settings, error) {
	var (
		s   Settings
		err error
	)
	strs := []struct {
		p   Parameter
		dst *string
	}{
		{OpenbisURL, &s.OpenbisURL},
		{FileserviceURL, &s.FileserviceURL},
		{User, &s.User},
		{Hostname, &s.Hostname},
		{GitAnnexBackend, &s.GitAnnexBackend},
		{ChecksumBackend, &s.ChecksumBackend},
		{DataSetType, &s.DataSetType},
		{ObjectID, &s.ObjectID},
		{CollectionID, &s.CollectionID},
		{RepositoryAnalysisParent, &s.AnalysisParent},
	}
	for _, str := range strs {
		if *str.dst, err = r.GetString(ctx, str.p); err != nil {
			return s, err
		}
	}

	bools := []struct {
		p   Parameter
		dst *bool
	}{
		{VerifyCertificates, &s.VerifyCertificates},
		{AllowOnlyHTTPS, &s.AllowOnlyHTTPS},
		{GitAnnexHashAsChecksum, &s.GitAnnexHashAsChecksum},
	}
	for _, b := range bools {
		raw, err := r.GetString(ctx, b.p)
		if err != nil {
			return s, err
		}
		if raw == "" {
			continue
		}
		if *b.dst, err = strconv.ParseBool(raw); err != nil {
			return s, ErrInvalidValue.WrapMessage("%s: %q is not a boolean", b.p, raw)
		}
	}

	raw, err := r.GetString(ctx, DownloadWorkers)
	if err != nil {
		return s, err
	}
	if raw != "" {
		if s.DownloadWorkers, err = strconv.Atoi(raw); err != nil || s.DownloadWorkers <= 0 {
			return s, ErrInvalidValue.WrapMessage("%s: %q is not a positive integer", DownloadWorkers, raw)
		}
	}

	props, found, err := r.Get(ctx, DataSetProperties)
	if err != nil {
		return s, err
	}
	if found {
		s.DataSetProperties = make(map[string]string)
		for k, v := range asObject(props) {
			if str, ok := v.(string); ok {
				s.DataSetProperties[k] = str
				continue
			}
			s.DataSetProperties[k] = fmt.Sprint(v)
		}
	}
	return s, nil
}

// Location of the working copy for this user and host
func (s Settings) Location(root string) model.Location {
	return model.Location{User: s.User, Hostname: s.Hostname, Path: root}
}

// Repository reads the identity of the working copy
func (r *Resolver) Repository(ctx context.Context) (model.RepositoryIdentity, error) {
	var id model.RepositoryIdentity
	if r.root == "" {
		return id, ErrNoWorkingCopy
	}
	doc, err := r.load(ctx, Local, true, CategoryRepository)
	if err != nil {
		return id, err
	}
	id.RepositoryID = stringOrEmpty(doc[RepositoryID.Name])
	id.ExternalDMSID = stringOrEmpty(doc[RepositoryExternalDMSID.Name])
	id.DataSetID = stringOrEmpty(doc[RepositoryDataSetID.Name])
	return id, nil
}

// SetRepository writes all identity fields at once. Empty fields are cleared.
func (r *Resolver) SetRepository(ctx context.Context, id model.RepositoryIdentity) error {
	return r.put(ctx, CategoryRepository, true, Local, map[string]interface{}{
		RepositoryID.Name:            nilIfEmpty(id.RepositoryID),
		RepositoryExternalDMSID.Name: nilIfEmpty(id.ExternalDMSID),
		RepositoryDataSetID.Name:     nilIfEmpty(id.DataSetID),
	})
}

// SetDataSetID records the head of the data set lineage of the working copy
func (r *Resolver) SetDataSetID(ctx context.Context, id string) error {
	return r.Set(ctx, RepositoryDataSetID, id, Local)
}

func stringOrEmpty(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
