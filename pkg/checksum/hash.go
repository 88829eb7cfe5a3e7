package checksum

import (
	"context"
	"crypto/md5" // #nosec
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"hash/crc32"
	"io"

	"github.com/zeebo/blake3"

	"github.com/oneconcern/datalink/pkg/checksum/status"
)

func sha256Hash() hash.Hash { return sha256.New() }
func md5Hash() hash.Hash    { return md5.New() } // #nosec
func blake3Hash() hash.Hash { return blake3.New() }
func crc32Hash() hash.Hash  { return crc32.NewIEEE() }

// hashProvider streams a file through a hash, computing its CRC32 on the way
type hashProvider struct {
	name    string
	newHash func() hash.Hash
	*settings
}

func newHashProvider(name string, h func() hash.Hash, s *settings) *hashProvider {
	return &hashProvider{name: name, newHash: h, settings: s}
}

func (p *hashProvider) Checksum(ctx context.Context, path string) (Result, error) {
	fi, err := stat(p.fs, path)
	if err != nil {
		return Result{}, err
	}
	f, err := p.fs.Open(path)
	if err != nil {
		return Result{}, status.ErrReadFile.Wrap(err)
	}
	defer f.Close()

	h := p.newHash()
	crc := crc32.NewIEEE()
	w := io.MultiWriter(h, crc)
	buf := make([]byte, chunkSize)
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		read, err := f.Read(buf)
		if read > 0 {
			_, _ = w.Write(buf[:read])
			n += int64(read)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, status.ErrReadFile.Wrap(err)
		}
	}
	if n != fi.Size() {
		return Result{}, status.ErrReadFile.WrapMessage("%s: read %d bytes, expected %d", path, n, fi.Size())
	}

	return Result{
		Checksum:     hex.EncodeToString(h.Sum(nil)),
		ChecksumType: p.name,
		FileLength:   n,
		CRC32:        crc.Sum32(),
	}, nil
}
