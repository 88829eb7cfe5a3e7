package core

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog"
	catalogstatus "github.com/oneconcern/datalink/pkg/catalog/status"
	"github.com/oneconcern/datalink/pkg/cmdlog"
	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/core/status"
	"github.com/oneconcern/datalink/pkg/errors"
	"github.com/oneconcern/datalink/pkg/model"
)

// Addref registers the working copy holding path as a content copy of its current data set.
//
// A content copy already registered is reported with AlreadyExists, as a success.
func (d *Datalink) Addref(ctx context.Context, path string) Result {
	wc, err := d.open(ctx, path)
	if err != nil {
		return failure(err)
	}
	return d.track(ctx, "addref", wc.root, nil, func(_ *cmdlog.Entry) (Result, error) {
		client, release, err := d.connect(ctx, wc.settings)
		if err != nil {
			return Result{}, err
		}
		defer release()
		return d.addref(ctx, client, wc)
	})
}

func (d *Datalink) addref(ctx context.Context, client catalog.Client, wc *workingCopy) (Result, error) {
	id, err := wc.cfg.Repository(ctx)
	if err != nil {
		return Result{}, err
	}
	if id.DataSetID == "" {
		return Result{}, status.ErrNotSynchronized.WrapMessage("%s", wc.root)
	}
	loc := wc.location()
	if err := loc.Validate(); err != nil {
		return Result{}, err
	}
	ds, err := client.GetDataSet(ctx, id.DataSetID)
	if err != nil {
		return Result{}, err
	}

	// a copied working copy becomes a repository of its own
	if id.ExternalDMSID != loc.ExternalDMSID() {
		if id, err = d.adopt(ctx, wc, id); err != nil {
			return Result{}, err
		}
	}

	dms, err := client.GetOrCreateExternalDMS(ctx, loc.ExternalDMS())
	if err != nil {
		return Result{}, err
	}
	hash, err := wc.vcs.CommitHash(ctx)
	if err != nil {
		return Result{}, err
	}
	cc, err := model.NewContentCopy(dms.Code, dms.Address, wc.root, hash, id.RepositoryID)
	if err != nil {
		return Result{}, err
	}

	exists := func() (Result, error) {
		return Result{
			Code:          CodeOK,
			Output:        "content copy already exists: " + loc.Address() + " in data set " + ds.ID,
			AlreadyExists: true,
			DataSetID:     ds.ID,
			Path:          wc.root,
		}, nil
	}
	if _, found := ds.FindContentCopy(cc); found {
		return exists()
	}
	err = client.AddContentCopy(ctx, ds.ID, cc)
	if errors.Is(err, catalogstatus.ErrContentCopyExists) {
		return exists()
	}
	if err != nil {
		return Result{}, err
	}

	d.l.Info("added content copy", zap.String("data_set", ds.ID), zap.String("address", loc.Address()))
	res := success("added content copy %s to data set %s", loc.Address(), ds.ID)
	res.DataSetID = ds.ID
	res.Path = wc.root
	return res, nil
}

// Removeref removes the content copy at path.
//
// Without a data set id, path must hold a working copy and its current data set is used.
// With a data set id, path needs not exist anymore.
func (d *Datalink) Removeref(ctx context.Context, path, dataSetID string) Result {
	var (
		root     string
		settings config.Settings
	)
	if dataSetID == "" {
		wc, err := d.open(ctx, path)
		if err != nil {
			return failure(err)
		}
		id, err := wc.cfg.Repository(ctx)
		if err != nil {
			return failure(err)
		}
		if id.DataSetID == "" {
			return failure(status.ErrNotSynchronized.WrapMessage("%s", wc.root))
		}
		root, settings, dataSetID = wc.root, wc.settings, id.DataSetID
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return failure(status.ErrNotWorkingCopy.WrapMessage("%s: %v", path, err))
		}
		if settings, err = d.globalSettings(ctx); err != nil {
			return failure(err)
		}
		root = abs
	}

	return d.track(ctx, "removeref", root, []string{dataSetID}, func(_ *cmdlog.Entry) (Result, error) {
		loc := settings.Location(root)
		if err := loc.Validate(); err != nil {
			return Result{}, err
		}
		client, release, err := d.connect(ctx, settings)
		if err != nil {
			return Result{}, err
		}
		defer release()

		ds, err := client.GetDataSet(ctx, dataSetID)
		if err != nil {
			return Result{}, err
		}
		cc, found := ds.FindContentCopy(model.ContentCopy{ExternalDMSID: loc.ExternalDMSID(), Path: root})
		if !found {
			return Result{}, catalogstatus.ErrContentCopyNotFound.WrapMessage("%s in data set %s", loc.Address(), ds.ID)
		}
		if err := client.DeleteContentCopy(ctx, ds.ID, cc); err != nil {
			return Result{}, err
		}

		d.l.Info("removed content copy", zap.String("data_set", ds.ID), zap.String("address", loc.Address()))
		res := success("removed content copy %s from data set %s", loc.Address(), ds.ID)
		res.DataSetID = ds.ID
		res.Path = root
		return res, nil
	})
}
