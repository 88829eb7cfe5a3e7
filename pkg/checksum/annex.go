package checksum

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/oneconcern/datalink/pkg/checksum/status"
	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/vcs"
)

// Annex answers questions about the git-annex content store
type Annex interface {
	AnnexBackend(context.Context) (string, error)
	AnnexInfo(context.Context, string) (vcs.AnnexFile, error)
}

// annexChecksumTypes maps git-annex backends to the checksum type they carry
var annexChecksumTypes = map[string]string{
	"SHA256":  SHA256,
	"SHA256E": SHA256,
	"MD5":     MD5,
	"MD5E":    MD5,
	"SHA1":    "SHA1",
	"SHA1E":   "SHA1",
	"SHA512":  "SHA512",
	"SHA512E": "SHA512",
	"WORM":    WORM,
}

func annexChecksumType(backend string) (string, error) {
	t, ok := annexChecksumTypes[strings.ToUpper(backend)]
	if !ok {
		return "", status.ErrUnsupportedBackend.WrapMessage("git-annex backend %q", backend)
	}
	return t, nil
}

// AnnexProvider derives checksums from annex keys, and falls back to a supplement
// provider for files which are not in the annex
type AnnexProvider struct {
	annex      Annex
	supplement Provider

	once    sync.Once
	backend string
	err     error
}

// NewAnnex builds a provider delegating to the annex
func NewAnnex(annex Annex, supplement Provider) *AnnexProvider {
	return &AnnexProvider{annex: annex, supplement: supplement}
}

func (a *AnnexProvider) configuredBackend(ctx context.Context) (string, error) {
	a.once.Do(func() {
		a.backend, a.err = a.annex.AnnexBackend(ctx)
		if a.err != nil {
			a.err = status.ErrAnnex.Wrap(a.err)
			return
		}
		_, a.err = annexChecksumType(a.backend)
	})
	return a.backend, a.err
}

// Checksum of a file
func (a *AnnexProvider) Checksum(ctx context.Context, path string) (Result, error) {
	if _, err := a.configuredBackend(ctx); err != nil {
		return Result{}, err
	}
	info, err := a.annex.AnnexInfo(ctx, path)
	if err != nil {
		return Result{}, status.ErrAnnex.Wrap(err)
	}
	if !info.Tracked || !info.Present || info.Key == "" {
		return a.supplement.Checksum(ctx, path)
	}
	return FromAnnexKey(info.Key)
}

// FromAnnexKey splits an annex key such as SHA256E-s1024--<hash>.ext into a checksum
func FromAnnexKey(key string) (Result, error) {
	sep := strings.Index(key, "--")
	if sep < 0 {
		return Result{}, status.ErrInvalidKey.WrapMessage("%q", key)
	}
	fields := strings.Split(key[:sep], "-")
	backend := fields[0]
	typ, err := annexChecksumType(backend)
	if err != nil {
		return Result{}, err
	}

	res := Result{ChecksumType: typ}
	for _, field := range fields[1:] {
		if strings.HasPrefix(field, "s") {
			if res.FileLength, err = strconv.ParseInt(field[1:], 10, 64); err != nil {
				return Result{}, status.ErrInvalidKey.WrapMessage("size in %q", key)
			}
		}
	}

	if typ == WORM {
		res.Checksum = strings.TrimPrefix(key, backend+"-")
		return res, nil
	}
	hash := key[sep+2:]
	if dot := strings.Index(hash, "."); dot >= 0 {
		hash = hash[:dot]
	}
	if hash == "" {
		return Result{}, status.ErrInvalidKey.WrapMessage("%q", key)
	}
	res.Checksum = hash
	return res, nil
}

// ForConfig builds the provider selected by the settings.
//
// When the annex hash is used as checksum, the configured backend only applies to files outside of the annex.
func ForConfig(s config.Settings, annex Annex, opts ...Option) (Provider, error) {
	backend := s.ChecksumBackend
	if backend == "" {
		backend = SHA256
	}
	supplement, err := New(backend, opts...)
	if err != nil {
		return nil, err
	}
	if !s.GitAnnexHashAsChecksum || annex == nil {
		return supplement, nil
	}
	return NewAnnex(annex, supplement), nil
}
