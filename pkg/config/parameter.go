package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// Category groups parameters persisted in the same document
type Category string

// Categories of settings
const (
	CategoryConfig     Category = "config"
	CategoryRepository Category = "repository"
	CategoryDataSet    Category = "data_set"
	CategoryObject     Category = "object"
	CategoryCollection Category = "collection"
)

// ValueType tells how a raw value is parsed
type ValueType int

// Value types
const (
	TypeString ValueType = iota
	TypeBool
	TypeInt
	TypeJSON
)

// Parameter is a named, typed setting
type Parameter struct {
	Category           Category
	Name               string
	Private            bool
	ExcludedFromGlobal bool
	Type               ValueType
	Default            func() string
}

// IsJSON tells if the value is a JSON object
func (p Parameter) IsJSON() bool {
	return p.Type == TypeJSON
}

func (p Parameter) String() string {
	return string(p.Category) + "." + p.Name
}

func constant(v string) func() string {
	return func() string { return v }
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

// Declared parameters
var (
	OpenbisURL               = Parameter{Category: CategoryConfig, Name: "openbis_url"}
	FileserviceURL           = Parameter{Category: CategoryConfig, Name: "fileservice_url"}
	User                     = Parameter{Category: CategoryConfig, Name: "user"}
	Hostname                 = Parameter{Category: CategoryConfig, Name: "hostname", Default: hostname}
	VerifyCertificates       = Parameter{Category: CategoryConfig, Name: "verify_certificates", Type: TypeBool, Default: constant("true")}
	AllowOnlyHTTPS           = Parameter{Category: CategoryConfig, Name: "allow_only_https", Type: TypeBool, Default: constant("true")}
	GitAnnexHashAsChecksum   = Parameter{Category: CategoryConfig, Name: "git_annex_hash_as_checksum", Type: TypeBool, Default: constant("true")}
	GitAnnexBackend          = Parameter{Category: CategoryConfig, Name: "git_annex_backend", Default: constant("SHA256E")}
	ChecksumBackend          = Parameter{Category: CategoryConfig, Name: "checksum_backend", Default: constant("SHA256")}
	DownloadWorkers          = Parameter{Category: CategoryConfig, Name: "download_workers", Type: TypeInt, Default: constant("10")}
	RepositoryID             = Parameter{Category: CategoryRepository, Name: "id", Private: true, ExcludedFromGlobal: true}
	RepositoryExternalDMSID  = Parameter{Category: CategoryRepository, Name: "external_dms_id", Private: true, ExcludedFromGlobal: true}
	RepositoryDataSetID      = Parameter{Category: CategoryRepository, Name: "data_set_id", Private: true, ExcludedFromGlobal: true}
	RepositoryAnalysisParent = Parameter{Category: CategoryRepository, Name: "analysis_parent", Private: true, ExcludedFromGlobal: true}
	DataSetType              = Parameter{Category: CategoryDataSet, Name: "type"}
	DataSetProperties        = Parameter{Category: CategoryDataSet, Name: "properties", Type: TypeJSON}
	ObjectID                 = Parameter{Category: CategoryObject, Name: "id", ExcludedFromGlobal: true}
	CollectionID             = Parameter{Category: CategoryCollection, Name: "id", ExcludedFromGlobal: true}
)

var parameters = map[Category][]Parameter{
	CategoryConfig: {
		OpenbisURL, FileserviceURL, User, Hostname, VerifyCertificates, AllowOnlyHTTPS,
		GitAnnexHashAsChecksum, GitAnnexBackend, ChecksumBackend, DownloadWorkers,
	},
	CategoryRepository: {RepositoryID, RepositoryExternalDMSID, RepositoryDataSetID, RepositoryAnalysisParent},
	CategoryDataSet:    {DataSetType, DataSetProperties},
	CategoryObject:     {ObjectID},
	CategoryCollection: {CollectionID},
}

// Categories known to the resolver, sorted by name
func Categories() []Category {
	res := make([]Category, 0, len(parameters))
	for c := range parameters {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Parameters of a category
func Parameters(category Category) []Parameter {
	return append([]Parameter(nil), parameters[category]...)
}

// Lookup a parameter by its category and case-insensitive name
func Lookup(category Category, name string) (Parameter, error) {
	params, ok := parameters[category]
	if !ok {
		return Parameter{}, ErrUnknownParameter.WrapMessage("category %q", category)
	}
	name = strings.ToLower(name)
	for _, p := range params {
		if p.Name == name {
			return p, nil
		}
	}
	return Parameter{}, ErrUnknownParameter.WrapMessage("%s.%s", category, name)
}

// parse a raw value according to the parameter's type
func (p Parameter) parse(raw string) (interface{}, error) {
	switch p.Type {
	case TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, ErrInvalidValue.WrapMessage("%s: %q is not a boolean", p, raw)
		}
		return strconv.FormatBool(b), nil
	case TypeInt:
		i, err := strconv.Atoi(raw)
		if err != nil || i <= 0 {
			return nil, ErrInvalidValue.WrapMessage("%s: %q is not a positive integer", p, raw)
		}
		return strconv.Itoa(i), nil
	case TypeJSON:
		return foldJSON(raw)
	default:
		return raw, nil
	}
}
