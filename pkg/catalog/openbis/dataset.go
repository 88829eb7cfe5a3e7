package openbis

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog/status"
	"github.com/oneconcern/datalink/pkg/model"
)

// CreatePermID reserves a new permanent identifier
func (c *Client) CreatePermID(ctx context.Context) (string, error) {
	var ids []string
	if err := c.as(ctx, "createPermIdStrings", &ids, 1); err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", status.ErrTransport.WrapMessage("createPermIdStrings: no id returned")
	}
	return ids[0], nil
}

func (c *Client) getExternalDMS(ctx context.Context, code string) (model.ExternalDMS, bool, error) {
	var raw jsonRaw
	err := c.as(ctx, "getExternalDataManagementSystems", &raw,
		[]interface{}{externalDMSPermID(code)},
		typed("as.dto.externaldms.fetchoptions.ExternalDmsFetchOptions", object{}),
	)
	if err != nil {
		return model.ExternalDMS{}, false, err
	}
	var res map[string]wireExternalDMS
	if err := resolveJackson(raw, &res); err != nil {
		return model.ExternalDMS{}, false, status.ErrTransport.Wrap(err)
	}
	for _, dms := range res {
		return dms.model(), true, nil
	}
	return model.ExternalDMS{}, false, nil
}

// GetOrCreateExternalDMS registers a file system location, unless it is already known
func (c *Client) GetOrCreateExternalDMS(ctx context.Context, dms model.ExternalDMS) (model.ExternalDMS, error) {
	existing, found, err := c.getExternalDMS(ctx, dms.Code)
	if err != nil || found {
		return existing, err
	}
	c.l.Info("registering external data management system", zap.String("code", dms.Code), zap.String("address", dms.Address))
	err = c.as(ctx, "createExternalDataManagementSystems", nil, []interface{}{
		typed("as.dto.externaldms.create.ExternalDmsCreation", object{
			"code":        dms.Code,
			"label":       dms.Label,
			"address":     dms.Address,
			"addressType": dms.AddressType,
		}),
	})
	if err != nil {
		return model.ExternalDMS{}, err
	}
	return dms, nil
}

// CreateDataSet creates a linked data set with its file metadata
func (c *Client) CreateDataSet(ctx context.Context, creation model.DataSetCreation) (string, error) {
	if err := creation.Validate(); err != nil {
		return "", err
	}
	code := creation.Code
	if code == "" {
		var err error
		if code, err = c.CreatePermID(ctx); err != nil {
			return "", err
		}
	}

	copies := make([]interface{}, 0, len(creation.ContentCopies))
	for _, cc := range creation.ContentCopies {
		copies = append(copies, contentCopyCreation(cc))
	}
	parents := make([]interface{}, 0, len(creation.Parents))
	for _, p := range creation.Parents {
		parents = append(parents, dataSetPermID(p))
	}
	metadata := typed("as.dto.dataset.create.DataSetCreation", object{
		"code":              code,
		"autoGeneratedCode": false,
		"dataSetKind":       string(model.KindLink),
		"typeId":            typed("as.dto.entitytype.id.EntityTypePermId", object{"permId": creation.Type}),
		"properties":        creation.Properties,
		"parentIds":         parents,
		"linkedData": typed("as.dto.dataset.create.LinkedDataCreation", object{
			"contentCopies": copies,
		}),
	})
	if creation.SampleID != "" {
		metadata["sampleId"] = entityID(creation.SampleID, "as.dto.sample.id.SampleIdentifier", "as.dto.sample.id.SamplePermId")
	} else {
		metadata["experimentId"] = entityID(creation.ExperimentID, "as.dto.experiment.id.ExperimentIdentifier", "as.dto.experiment.id.ExperimentPermId")
	}

	files := make([]interface{}, 0, len(creation.Files))
	for _, f := range creation.Files {
		files = append(files, typed("dss.dto.datasetfile.create.DataSetFileCreation", object{
			"path":          f.Path,
			"fileLength":    f.FileLength,
			"checksumCRC32": f.ChecksumCRC32,
			"checksum":      f.Checksum,
			"checksumType":  f.ChecksumType,
			"directory":     f.Directory,
		}))
	}

	var ids []permID
	err := c.dss(ctx, "createDataSets", &ids, []interface{}{
		typed("dss.dto.dataset.create.FullDataSetCreation", object{
			"metadataCreation": metadata,
			"fileMetadata":     files,
		}),
	})
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", status.ErrTransport.WrapMessage("createDataSets: no data set created")
	}
	c.l.Info("created data set", zap.String("id", ids[0].PermID))
	return ids[0].PermID, nil
}

func (c *Client) getWireDataSet(ctx context.Context, id string) (wireDataSet, error) {
	var raw jsonRaw
	if err := c.as(ctx, "getDataSets", &raw, []interface{}{dataSetPermID(id)}, dataSetFetchOptions()); err != nil {
		return wireDataSet{}, err
	}
	var res map[string]wireDataSet
	if err := resolveJackson(raw, &res); err != nil {
		return wireDataSet{}, status.ErrTransport.Wrap(err)
	}
	ds, ok := res[id]
	if !ok {
		return wireDataSet{}, status.ErrDataSetNotFound.WrapMessage("%s", id)
	}
	return ds, nil
}

// GetDataSet by its perm id
func (c *Client) GetDataSet(ctx context.Context, id string) (model.DataSet, error) {
	ds, err := c.getWireDataSet(ctx, id)
	if err != nil {
		return model.DataSet{}, err
	}
	return ds.model(), nil
}

// AddContentCopy registers a new location for a data set
func (c *Client) AddContentCopy(ctx context.Context, id string, cc model.ContentCopy) error {
	ds, err := c.GetDataSet(ctx, id)
	if err != nil {
		return err
	}
	if _, found := ds.FindContentCopy(cc); found {
		return status.ErrContentCopyExists.WrapMessage("%s:%s", cc.ExternalDMSID, cc.Path)
	}
	return c.updateContentCopies(ctx, id, "as.dto.common.update.ListUpdateActionAdd", contentCopyCreation(cc))
}

// DeleteContentCopy removes the content copy at the same location as cc
func (c *Client) DeleteContentCopy(ctx context.Context, id string, cc model.ContentCopy) error {
	ds, err := c.getWireDataSet(ctx, id)
	if err != nil {
		return err
	}
	if ds.LinkedData != nil {
		for _, existing := range ds.LinkedData.ContentCopies {
			if existing.model().SameLocation(cc) {
				return c.updateContentCopies(ctx, id, "as.dto.common.update.ListUpdateActionRemove",
					typed("as.dto.dataset.id.ContentCopyPermId", object{"permId": existing.ID.PermID}))
			}
		}
	}
	return status.ErrContentCopyNotFound.WrapMessage("%s:%s", cc.ExternalDMSID, cc.Path)
}

func (c *Client) updateContentCopies(ctx context.Context, id, action string, item object) error {
	return c.as(ctx, "updateDataSets", nil, []interface{}{
		typed("as.dto.dataset.update.DataSetUpdate", object{
			"dataSetId": dataSetPermID(id),
			"linkedData": typed("as.dto.common.update.FieldUpdateValue", object{
				"isModified": true,
				"value": typed("as.dto.dataset.update.LinkedDataUpdate", object{
					"contentCopies": typed("as.dto.dataset.update.ContentCopyListUpdateValue", object{
						"actions": []interface{}{
							typed(action, object{"items": []interface{}{item}}),
						},
					}),
				}),
			}),
		}),
	})
}

// SearchFiles lists the file metadata registered with a data set
func (c *Client) SearchFiles(ctx context.Context, id string) (model.Manifest, error) {
	criteria := typed("dss.dto.datasetfile.search.DataSetFileSearchCriteria", object{
		"operator": "AND",
		"criteria": []interface{}{
			typed("as.dto.dataset.search.DataSetSearchCriteria", object{
				"relation": "DATASET",
				"operator": "AND",
				"criteria": []interface{}{
					typed("as.dto.common.search.PermIdSearchCriteria", object{
						"fieldValue": typed("as.dto.common.search.StringEqualToValue", object{"value": id}),
					}),
				},
			}),
		},
	})
	var res struct {
		Objects []wireFile `json:"objects"`
	}
	var raw jsonRaw
	if err := c.dss(ctx, "searchFiles", &raw, criteria,
		typed("dss.dto.datasetfile.fetchoptions.DataSetFileFetchOptions", object{})); err != nil {
		return nil, err
	}
	if err := resolveJackson(raw, &res); err != nil {
		return nil, status.ErrTransport.Wrap(err)
	}
	manifest := make(model.Manifest, 0, len(res.Objects))
	for _, f := range res.Objects {
		manifest = append(manifest, f.model())
	}
	return manifest, nil
}

// DownloadFile streams one file of a content copy from the file service
func (c *Client) DownloadFile(ctx context.Context, req model.DownloadRequest) (io.ReadCloser, error) {
	if c.fileservice == "" {
		return nil, status.ErrUnsupportedURL.WrapMessage("no file service configured to download linked data sets")
	}
	token, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("sessionToken", token)
	q.Set("datasetPermId", req.DataSetID)
	q.Set("externalDMSCode", req.ContentCopy.ExternalDMSID)
	q.Set("contentCopyPath", req.ContentCopy.Path)
	q.Set("datasetPathToFile", req.Path)
	if req.Offset > 0 {
		q.Set("offset", strconv.FormatInt(req.Offset, 10))
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileservice+"?"+q.Encode(), nil)
	if err != nil {
		return nil, status.ErrTransport.Wrap(err)
	}
	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, status.ErrTransport.WrapMessage("downloading %s: %v", req.Path, err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return resp.Body, nil
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, status.ErrFileNotFound.WrapMessage("%s in %s", req.Path, req.DataSetID)
	default:
		_ = resp.Body.Close()
		return nil, status.ErrTransport.WrapMessage("downloading %s: %s", req.Path, resp.Status)
	}
}
