// Copyright © 2018 One Concern

// Package checksum computes the checksums recorded in data set manifests.
//
// Content backends stream files in fixed-size chunks. The WORM backend only
// fingerprints the size, modification time and path of a file: it is not a content checksum.
// The annex provider derives checksums from git-annex keys whenever a file is tracked.
package checksum

import (
	"context"
	"os"
	"strings"

	units "github.com/docker/go-units"
	"github.com/spf13/afero"

	"github.com/oneconcern/datalink/pkg/checksum/status"
)

// Backend names
const (
	SHA256  = "SHA256"
	MD5     = "MD5"
	BLAKE2B = "BLAKE2B"
	BLAKE3  = "BLAKE3"
	WORM    = "WORM"
	CRC32   = "CRC32"
)

const chunkSize = 64 * units.KiB

// Result of a checksum computation
type Result struct {
	Checksum     string
	ChecksumType string
	FileLength   int64
	CRC32        uint32
}

// Provider computes the checksum of a file
type Provider interface {
	Checksum(ctx context.Context, path string) (Result, error)
}

type settings struct {
	fs       afero.Fs
	leafSize uint32
	workers  int
}

// Option for providers
type Option func(*settings)

// WithFs sets the file system files are read from
func WithFs(fs afero.Fs) Option {
	return func(s *settings) {
		if fs != nil {
			s.fs = fs
		}
	}
}

// WithLeafSize sets the leaf size of the BLAKE2B tree hash
func WithLeafSize(sz int64) Option {
	return func(s *settings) {
		if sz > 0 {
			s.leafSize = uint32(sz)
		}
	}
}

// WithWorkers sets the number of concurrent leaf hashers of the BLAKE2B tree hash
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.workers = n
		}
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{
		fs:       afero.NewOsFs(),
		leafSize: uint32(5 * units.MiB),
		workers:  4,
	}
	for _, apply := range opts {
		apply(s)
	}
	return s
}

// New provider for a backend name, case insensitive
func New(backend string, opts ...Option) (Provider, error) {
	s := newSettings(opts)
	switch strings.ToUpper(backend) {
	case SHA256:
		return newHashProvider(SHA256, sha256Hash, s), nil
	case MD5:
		return newHashProvider(MD5, md5Hash, s), nil
	case BLAKE3:
		return newHashProvider(BLAKE3, blake3Hash, s), nil
	case CRC32:
		return newHashProvider(CRC32, crc32Hash, s), nil
	case BLAKE2B:
		return &treeProvider{settings: s}, nil
	case WORM:
		return &wormProvider{fs: s.fs}, nil
	default:
		return nil, status.ErrUnsupportedBackend.WrapMessage("%q", backend)
	}
}

// Supported tells if a backend computes a content checksum that can be verified after a transfer
func Supported(backend string) bool {
	switch strings.ToUpper(backend) {
	case SHA256, MD5, BLAKE3, CRC32, BLAKE2B:
		return true
	default:
		return false
	}
}

// stat a file to checksum, rejecting empty files
func stat(fs afero.Fs, path string) (os.FileInfo, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return nil, status.ErrReadFile.Wrap(err)
	}
	if fi.IsDir() {
		return nil, status.ErrReadFile.WrapMessage("%s is a directory", path)
	}
	if fi.Size() == 0 {
		return nil, status.ErrEmptyFile.WrapMessage("%s", path)
	}
	return fi, nil
}
