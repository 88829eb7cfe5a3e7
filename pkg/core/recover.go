package core

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog"
	catalogstatus "github.com/oneconcern/datalink/pkg/catalog/status"
	"github.com/oneconcern/datalink/pkg/errors"
)

// Recover clears the commands left unfinished on path.
//
// A data set reserved by an interrupted commit is looked up in the catalog:
// when it was created, it becomes the current data set of the working copy.
func (d *Datalink) Recover(ctx context.Context, path string) Result {
	if d.log == nil {
		return success("nothing to recover")
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return failure(err)
	}
	wc, err := d.open(ctx, root)
	if err == nil {
		root = wc.root
	}
	pending, err := d.log.Pending(ctx, root)
	if err != nil {
		return failure(err)
	}
	if len(pending) == 0 {
		return success("nothing to recover")
	}

	var (
		client    catalog.Client
		release   = func() {}
		recovered string
	)
	defer func() { release() }()

	for i := range pending {
		e := &pending[i]
		if e.DataSetID != "" && wc != nil {
			if client == nil {
				c, r, err := d.connect(ctx, wc.settings)
				if err != nil {
					return failure(err)
				}
				client, release = c, r
			}
			_, err := client.GetDataSet(ctx, e.DataSetID)
			switch {
			case err == nil:
				if err := wc.cfg.SetDataSetID(ctx, e.DataSetID); err != nil {
					return failure(err)
				}
				recovered = e.DataSetID
				d.l.Info("recovered data set", zap.String("id", e.DataSetID), zap.String("command", e.Command))
			case errors.Is(err, catalogstatus.ErrDataSetNotFound):
				d.l.Info("reserved data set was never created", zap.String("id", e.DataSetID), zap.String("command", e.Command))
			default:
				return failure(err)
			}
		}
		if err := d.log.Done(ctx, e); err != nil {
			return failure(err)
		}
	}

	res := success("cleared %d unfinished commands on %s", len(pending), root)
	if recovered != "" {
		res.Output += ", current data set is now " + recovered
		res.DataSetID = recovered
	}
	res.Path = root
	return res
}
