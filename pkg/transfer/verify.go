package transfer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oneconcern/datalink/pkg/checksum"
	"github.com/oneconcern/datalink/pkg/model"
	"github.com/oneconcern/datalink/pkg/transfer/status"
)

// VerifyFile checks the length and, unless lengthOnly, the checksum of a local file against its manifest entry.
//
// Entries with a checksum type this build cannot compute fall back to their CRC32, if any.
func VerifyFile(ctx context.Context, fs afero.Fs, pth string, entry model.FileEntry, lengthOnly bool) error {
	fi, err := fs.Stat(pth)
	if err != nil {
		return status.ErrLengthMismatch.WrapMessage("%s: %v", entry.Path, err)
	}
	if fi.Size() != entry.FileLength {
		return status.ErrLengthMismatch.WrapMessage("%s: expected %d bytes, got %d", entry.Path, entry.FileLength, fi.Size())
	}
	if lengthOnly || entry.FileLength == 0 {
		return nil
	}

	expected, backend := entry.Checksum, entry.ChecksumType
	if expected == "" || !checksum.Supported(backend) {
		if entry.ChecksumCRC32 == 0 {
			return nil
		}
		expected, backend = fmt.Sprintf("%08x", entry.ChecksumCRC32), checksum.CRC32
	}
	p, err := checksum.New(backend, checksum.WithFs(fs))
	if err != nil {
		return err
	}
	res, err := p.Checksum(ctx, pth)
	if err != nil {
		return err
	}
	if res.Checksum != expected {
		return status.ErrChecksumMismatch.WrapMessage("%s: %s expected %s, got %s", entry.Path, backend, expected, res.Checksum)
	}
	return nil
}

// Verify all the files of a manifest under root
func Verify(ctx context.Context, fs afero.Fs, root string, files model.Manifest, lengthOnly bool) error {
	for _, entry := range files.Files() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := VerifyFile(ctx, fs, filepath.Join(root, filepath.FromSlash(entry.Path)), entry, lengthOnly); err != nil {
			return err
		}
	}
	return nil
}
