package transfer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oneconcern/datalink/pkg/model"
	"github.com/oneconcern/datalink/pkg/transfer/status"
)

// DefaultWorkers is the number of concurrent file downloads
const DefaultWorkers = 10

// Fetcher streams one file of a content copy
type Fetcher interface {
	DownloadFile(context.Context, model.DownloadRequest) (io.ReadCloser, error)
}

// Downloader fetches the files of a content copy with a bounded pool of workers
type Downloader struct {
	fetcher    Fetcher
	fs         afero.Fs
	workers    int
	lengthOnly bool
	l          *zap.Logger
}

// DownloadOption for the downloader
type DownloadOption func(*Downloader)

// DownloadFs sets the destination file system
func DownloadFs(fs afero.Fs) DownloadOption {
	return func(d *Downloader) {
		if fs != nil {
			d.fs = fs
		}
	}
}

// DownloadWorkers sets the number of concurrent downloads
func DownloadWorkers(n int) DownloadOption {
	return func(d *Downloader) {
		if n > 0 {
			d.workers = n
		}
	}
}

// SkipIntegrityCheck only checks file lengths
func SkipIntegrityCheck(skip bool) DownloadOption {
	return func(d *Downloader) {
		d.lengthOnly = skip
	}
}

// DownloadLogger sets a logger
func DownloadLogger(l *zap.Logger) DownloadOption {
	return func(d *Downloader) {
		if l != nil {
			d.l = l
		}
	}
}

// NewDownloader builds a downloader
func NewDownloader(fetcher Fetcher, opts ...DownloadOption) *Downloader {
	d := &Downloader{
		fetcher: fetcher,
		fs:      afero.NewOsFs(),
		workers: DefaultWorkers,
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(d)
	}
	return d
}

// Stats of a download
type Stats struct {
	Downloaded int
	Skipped    int
	Bytes      int64
}

// Download files of a content copy into dest.
//
// Complete files are skipped and partial files are resumed. The first failure cancels all other downloads.
func (d *Downloader) Download(ctx context.Context, dataSetID string, cc model.ContentCopy, files model.Manifest, dest string) (Stats, error) {
	var downloaded, skipped int32
	var written int64

	for _, entry := range files {
		if !entry.Directory {
			continue
		}
		if err := d.fs.MkdirAll(filepath.Join(dest, filepath.FromSlash(entry.Path)), 0755); err != nil {
			return Stats{}, status.ErrDownload.Wrap(err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, toPin := range files {
		entry := toPin
		if entry.Directory {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(entry.Path))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := d.downloadFile(gctx, model.DownloadRequest{DataSetID: dataSetID, ContentCopy: cc, Path: entry.Path}, entry, target)
			if err != nil {
				return err
			}
			if n < 0 {
				atomic.AddInt32(&skipped, 1)
				return nil
			}
			atomic.AddInt32(&downloaded, 1)
			atomic.AddInt64(&written, n)
			return nil
		})
	}
	err := g.Wait()
	stats := Stats{Downloaded: int(downloaded), Skipped: int(skipped), Bytes: written}
	if err != nil {
		return stats, err
	}
	d.l.Info("downloaded data set", zap.String("id", dataSetID), zap.Int("files", stats.Downloaded),
		zap.Int("skipped", stats.Skipped), zap.Int64("bytes", stats.Bytes))
	return stats, nil
}

// downloadFile returns the number of bytes written, or -1 for a file already complete
func (d *Downloader) downloadFile(ctx context.Context, req model.DownloadRequest, entry model.FileEntry, target string) (int64, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if fi, err := d.fs.Stat(target); err == nil && !fi.IsDir() {
		switch {
		case fi.Size() == entry.FileLength:
			d.l.Debug("file already downloaded", zap.String("path", entry.Path))
			return -1, nil
		case fi.Size() < entry.FileLength:
			req.Offset = fi.Size()
			flags = os.O_WRONLY | os.O_APPEND
		}
	}
	if err := d.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, status.ErrDownload.Wrap(err)
	}

	rdr, err := d.fetcher.DownloadFile(ctx, req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rdr.Close() }()

	f, err := d.fs.OpenFile(target, flags, 0644)
	if err != nil {
		return 0, status.ErrDownload.Wrap(err)
	}
	n, err := io.Copy(f, rdr)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, status.ErrDownload.WrapMessage("%s: %v", entry.Path, err)
	}
	d.l.Debug("downloaded file", zap.String("path", entry.Path), zap.Int64("offset", req.Offset), zap.Int64("bytes", n))

	if err := VerifyFile(ctx, d.fs, target, entry, d.lengthOnly); err != nil {
		return n, err
	}
	return n, nil
}
