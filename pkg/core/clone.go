package core

import (
	"context"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog"
	"github.com/oneconcern/datalink/pkg/cmdlog"
	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/core/status"
	"github.com/oneconcern/datalink/pkg/model"
	"github.com/oneconcern/datalink/pkg/transfer"
)

// CloneOptions for clones and moves
type CloneOptions struct {
	// SSHUser to reach content copies on other hosts
	SSHUser string

	// ContentCopyIndex selects the content copy. A negative index is only valid with a single content copy.
	ContentCopyIndex int

	SkipIntegrityCheck bool

	// Destination folder of the clone, the current folder by default
	Destination string
}

func (o CloneOptions) args(dataSetID string) []string {
	args := []string{dataSetID, "--content-copy-index", strconv.Itoa(o.ContentCopyIndex)}
	if o.SSHUser != "" {
		args = append(args, "--ssh-user", o.SSHUser)
	}
	return args
}

// Clone a content copy of a linked data set and register the clone as a new content copy
func (d *Datalink) Clone(ctx context.Context, dataSetID string, opts CloneOptions) Result {
	return d.cloneCommand(ctx, "clone", dataSetID, opts, false)
}

// Move clones a content copy, then removes the source content copy from the data set.
//
// The source files are left in place.
func (d *Datalink) Move(ctx context.Context, dataSetID string, opts CloneOptions) Result {
	return d.cloneCommand(ctx, "move", dataSetID, opts, true)
}

func (d *Datalink) cloneCommand(ctx context.Context, command, dataSetID string, opts CloneOptions, move bool) Result {
	dest := opts.Destination
	if dest == "" {
		dest = "."
	}
	parent, err := filepath.Abs(dest)
	if err != nil {
		return failure(status.ErrNotWorkingCopy.WrapMessage("%s: %v", dest, err))
	}
	s, err := d.globalSettings(ctx)
	if err != nil {
		return failure(err)
	}

	return d.track(ctx, command, parent, opts.args(dataSetID), func(_ *cmdlog.Entry) (Result, error) {
		client, release, err := d.connect(ctx, s)
		if err != nil {
			return Result{}, err
		}
		defer release()

		res, source, err := d.clone(ctx, client, s, dataSetID, parent, opts)
		if err != nil || !move {
			return res, err
		}
		if err := client.DeleteContentCopy(ctx, dataSetID, source); err != nil {
			return Result{}, err
		}
		d.l.Info("removed source content copy", zap.String("data_set", dataSetID), zap.String("path", source.Path))
		res.Output += "\nremoved content copy " + source.ExternalDMSAddress + " from data set " + dataSetID
		return res, nil
	})
}

// clone returns the selected source content copy along with the result
func (d *Datalink) clone(ctx context.Context, client catalog.Client, s config.Settings, dataSetID, parent string, opts CloneOptions) (Result, model.ContentCopy, error) {
	ds, err := client.GetDataSet(ctx, dataSetID)
	if err != nil {
		return Result{}, model.ContentCopy{}, err
	}
	if !ds.IsLink() {
		return Result{}, model.ContentCopy{}, status.ErrNotLinked.WrapMessage("%s is a %s data set", ds.ID, ds.Kind)
	}
	source, err := ds.ContentCopy(opts.ContentCopyIndex)
	if err != nil {
		return Result{}, model.ContentCopy{}, err
	}

	copier := d.copier
	if copier == nil {
		copier = transfer.NewRsync(s.Hostname, transfer.RsyncLogger(d.l))
	}
	dest, err := copier.Copy(ctx, transfer.Source{Host: source.Hostname(), User: opts.SSHUser, Path: source.Path}, parent)
	if err != nil {
		return Result{}, source, err
	}
	d.l.Info("copied content copy", zap.String("data_set", ds.ID), zap.String("from", source.Path), zap.String("to", dest))

	// the source may have moved on since it was registered
	if source.GitCommitHash != "" {
		if err := d.newVCS(dest).Checkout(ctx, source.GitCommitHash); err != nil {
			return Result{}, source, err
		}
	}
	cfg, err := d.resolver(dest)
	if err != nil {
		return Result{}, source, err
	}
	if err := cfg.SetDataSetID(ctx, ds.ID); err != nil {
		return Result{}, source, err
	}

	if !opts.SkipIntegrityCheck {
		files, err := client.SearchFiles(ctx, ds.ID)
		if err != nil {
			return Result{}, source, err
		}
		if err := transfer.Verify(ctx, d.fs, dest, files, false); err != nil {
			return Result{}, source, err
		}
	}

	wc, err := d.open(ctx, dest)
	if err != nil {
		return Result{}, source, err
	}
	if _, err := d.addref(ctx, client, wc); err != nil {
		return Result{}, source, err
	}
	res := success("cloned data set %s into %s", ds.ID, wc.root)
	res.DataSetID = ds.ID
	res.Path = wc.root
	return res, source, nil
}
