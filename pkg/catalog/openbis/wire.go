package openbis

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/oneconcern/datalink/pkg/model"
)

type jsonRaw = jsoniter.RawMessage

// openBIS serializes objects with jackson: an object seen twice is sent
// once with an "@id", then as this bare number.
var jacksonRefKeys = map[string]bool{
	"type":          true,
	"sample":        true,
	"experiment":    true,
	"externalDms":   true,
	"linkedData":    true,
	"dataStore":     true,
	"parents":       true,
	"children":      true,
	"contentCopies": true,
}

func resolveJackson(raw []byte, target interface{}) error {
	var tree interface{}
	if err := jsoniter.Unmarshal(raw, &tree); err != nil {
		return err
	}
	ids := make(map[float64]interface{})
	collectJacksonIDs(tree, ids)
	resolved := replaceJacksonRefs(tree, ids, false)

	b, err := jsoniter.Marshal(resolved)
	if err != nil {
		return err
	}
	return jsoniter.Unmarshal(b, target)
}

func collectJacksonIDs(node interface{}, ids map[float64]interface{}) {
	switch n := node.(type) {
	case map[string]interface{}:
		if id, ok := n["@id"].(float64); ok {
			ids[id] = n
		}
		for _, v := range n {
			collectJacksonIDs(v, ids)
		}
	case []interface{}:
		for _, v := range n {
			collectJacksonIDs(v, ids)
		}
	}
}

func replaceJacksonRefs(node interface{}, ids map[float64]interface{}, ref bool) interface{} {
	switch n := node.(type) {
	case float64:
		if obj, ok := ids[n]; ok && ref {
			return obj
		}
		return n
	case map[string]interface{}:
		res := make(map[string]interface{}, len(n))
		for k, v := range n {
			res[k] = replaceJacksonRefs(v, ids, jacksonRefKeys[k])
		}
		return res
	case []interface{}:
		res := make([]interface{}, len(n))
		for i, v := range n {
			res[i] = replaceJacksonRefs(v, ids, ref)
		}
		return res
	default:
		return n
	}
}

type permID struct {
	Type   string `json:"@type,omitempty"`
	PermID string `json:"permId"`
}

type identifier struct {
	Identifier string `json:"identifier"`
}

type typeCode struct {
	Code string `json:"code"`
}

type wireExternalDMS struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	Address     string `json:"address"`
	AddressType string `json:"addressType"`
}

func (w wireExternalDMS) model() model.ExternalDMS {
	return model.ExternalDMS{Code: w.Code, Label: w.Label, Address: w.Address, AddressType: w.AddressType}
}

type wireContentCopy struct {
	ID              permID          `json:"id"`
	ExternalDMS     wireExternalDMS `json:"externalDms"`
	Path            string          `json:"path"`
	GitCommitHash   string          `json:"gitCommitHash"`
	GitRepositoryID string          `json:"gitRepositoryId"`
}

func (w wireContentCopy) model() model.ContentCopy {
	return model.ContentCopy{
		ExternalDMSID:      w.ExternalDMS.Code,
		ExternalDMSAddress: w.ExternalDMS.Address,
		Path:               w.Path,
		GitCommitHash:      w.GitCommitHash,
		GitRepositoryID:    w.GitRepositoryID,
	}
}

type wireDataSet struct {
	PermID     permID            `json:"permId"`
	Type       typeCode          `json:"type"`
	Kind       string            `json:"kind"`
	Properties map[string]string `json:"properties"`
	Parents    []struct {
		PermID permID `json:"permId"`
	} `json:"parents"`
	Sample *struct {
		Identifier identifier `json:"identifier"`
	} `json:"sample"`
	Experiment *struct {
		Identifier identifier `json:"identifier"`
	} `json:"experiment"`
	LinkedData *struct {
		ContentCopies []wireContentCopy `json:"contentCopies"`
	} `json:"linkedData"`
}

func (w wireDataSet) model() model.DataSet {
	ds := model.DataSet{
		ID:         w.PermID.PermID,
		Type:       w.Type.Code,
		Kind:       model.DataSetKind(w.Kind),
		Properties: w.Properties,
	}
	for _, p := range w.Parents {
		ds.Parents = append(ds.Parents, p.PermID.PermID)
	}
	if w.Sample != nil {
		ds.SampleID = w.Sample.Identifier.Identifier
	}
	if w.Experiment != nil {
		ds.ExperimentID = w.Experiment.Identifier.Identifier
	}
	if w.LinkedData != nil {
		for _, cc := range w.LinkedData.ContentCopies {
			ds.ContentCopies = append(ds.ContentCopies, cc.model())
		}
	}
	return ds
}

type wireFile struct {
	Path          string `json:"path"`
	FileLength    int64  `json:"fileLength"`
	ChecksumCRC32 uint32 `json:"checksumCRC32"`
	Checksum      string `json:"checksum"`
	ChecksumType  string `json:"checksumType"`
	Directory     bool   `json:"directory"`
}

func (w wireFile) model() model.FileEntry {
	return model.FileEntry{
		Path:          w.Path,
		FileLength:    w.FileLength,
		Checksum:      w.Checksum,
		ChecksumType:  w.ChecksumType,
		ChecksumCRC32: w.ChecksumCRC32,
		Directory:     w.Directory,
	}
}

type object map[string]interface{}

func typed(t string, fields object) object {
	fields["@type"] = t
	return fields
}

func dataSetPermID(id string) object {
	return typed("as.dto.dataset.id.DataSetPermId", object{"permId": id})
}

func externalDMSPermID(code string) object {
	return typed("as.dto.externaldms.id.ExternalDmsPermId", object{"permId": code})
}

func contentCopyCreation(cc model.ContentCopy) object {
	return typed("as.dto.dataset.create.ContentCopyCreation", object{
		"externalDmsId":   externalDMSPermID(cc.ExternalDMSID),
		"path":            cc.Path,
		"gitCommitHash":   cc.GitCommitHash,
		"gitRepositoryId": cc.GitRepositoryID,
	})
}

// entityID picks an identifier or a perm id, as openBIS accepts both
func entityID(id, identifierType, permIDType string) object {
	if len(id) > 0 && id[0] == '/' {
		return typed(identifierType, object{"identifier": id})
	}
	return typed(permIDType, object{"permId": id})
}

func dataSetFetchOptions() object {
	return typed("as.dto.dataset.fetchoptions.DataSetFetchOptions", object{
		"type":       typed("as.dto.dataset.fetchoptions.DataSetTypeFetchOptions", object{}),
		"properties": typed("as.dto.property.fetchoptions.PropertyFetchOptions", object{}),
		"parents":    typed("as.dto.dataset.fetchoptions.DataSetFetchOptions", object{}),
		"sample":     typed("as.dto.sample.fetchoptions.SampleFetchOptions", object{}),
		"experiment": typed("as.dto.experiment.fetchoptions.ExperimentFetchOptions", object{}),
		"linkedData": typed("as.dto.dataset.fetchoptions.LinkedDataFetchOptions", object{
			"externalDms": typed("as.dto.externaldms.fetchoptions.ExternalDmsFetchOptions", object{}),
		}),
	})
}
