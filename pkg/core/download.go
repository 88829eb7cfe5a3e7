package core

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	units "github.com/docker/go-units"

	"github.com/oneconcern/datalink/pkg/core/status"
	"github.com/oneconcern/datalink/pkg/model"
	"github.com/oneconcern/datalink/pkg/transfer"
)

// DownloadOptions for downloads
type DownloadOptions struct {
	// ContentCopyIndex selects the content copy. A negative index is only valid with a single content copy.
	ContentCopyIndex int

	// Files to download, relative to the content copy. Folders select all the files they hold. All files by default.
	Files []string

	SkipIntegrityCheck bool

	// Destination folder, the current folder by default. Files land in a folder named after the data set.
	Destination string
}

// Download files of a linked data set, without registering any content copy
func (d *Datalink) Download(ctx context.Context, dataSetID string, opts DownloadOptions) Result {
	s, err := d.globalSettings(ctx)
	if err != nil {
		return failure(err)
	}
	dest := opts.Destination
	if dest == "" {
		dest = "."
	}
	dest, err = filepath.Abs(dest)
	if err != nil {
		return failure(status.ErrNotWorkingCopy.WrapMessage("%s: %v", opts.Destination, err))
	}

	client, release, err := d.connect(ctx, s)
	if err != nil {
		return failure(err)
	}
	defer release()

	ds, err := client.GetDataSet(ctx, dataSetID)
	if err != nil {
		return failure(err)
	}
	if !ds.IsLink() {
		return failure(status.ErrNotLinked.WrapMessage("%s is a %s data set", ds.ID, ds.Kind))
	}
	cc, err := ds.ContentCopy(opts.ContentCopyIndex)
	if err != nil {
		return failure(err)
	}
	manifest, err := client.SearchFiles(ctx, ds.ID)
	if err != nil {
		return failure(err)
	}
	files, err := selectFiles(manifest, opts.Files)
	if err != nil {
		return failure(err)
	}

	target := filepath.Join(dest, ds.ID)
	dl := transfer.NewDownloader(client,
		transfer.DownloadFs(d.fs),
		transfer.DownloadWorkers(s.DownloadWorkers),
		transfer.SkipIntegrityCheck(opts.SkipIntegrityCheck),
		transfer.DownloadLogger(d.l),
	)
	stats, err := dl.Download(ctx, ds.ID, cc, files, target)
	if err != nil {
		return failure(err)
	}
	res := success("downloaded %d files (%s) of data set %s into %s, %d already present",
		stats.Downloaded, units.HumanSize(float64(stats.Bytes)), ds.ID, target, stats.Skipped)
	res.DataSetID = ds.ID
	res.Path = target
	return res
}

// selectFiles picks the files of a manifest named directly or through a folder
func selectFiles(manifest model.Manifest, selection []string) (model.Manifest, error) {
	if len(selection) == 0 {
		return manifest.Files(), nil
	}
	var (
		res  model.Manifest
		seen = make(map[string]bool)
	)
	add := func(e model.FileEntry) {
		if !seen[e.Path] {
			seen[e.Path] = true
			res = append(res, e)
		}
	}
	for _, sel := range selection {
		p := path.Clean(filepath.ToSlash(sel))
		entry, ok := manifest.Lookup(p)
		if !ok {
			return nil, status.ErrFileNotInDataSet.WrapMessage("%s", sel)
		}
		if !entry.Directory {
			add(entry)
			continue
		}
		for _, e := range manifest.Files() {
			if strings.HasPrefix(e.Path, p+"/") {
				add(e)
			}
		}
	}
	return res, nil
}
