package checksum

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/oneconcern/datalink/internal/rand"
	"github.com/oneconcern/datalink/pkg/checksum/status"
	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/errors"
	"github.com/oneconcern/datalink/pkg/vcs"
)

const (
	potato       = "the quick brown potato"
	potatoSHA256 = "0b1a8e95c323bfed5c8e58d0188f7aee3211c3d622fc3344ce1b98a2f0478b35"
	potatoMD5    = "15158f5a4b52cbd25f2edb02f8b7d463"
	potatoCRC32  = 4248724899
)

func setupFs(t testing.TB) afero.Fs {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/repo/potato.txt", []byte(potato), 0600))
	require.NoError(t, afero.WriteFile(fs, "/repo/empty.txt", nil, 0600))
	return fs
}

func TestContentBackends(t *testing.T) {
	ctx := context.Background()
	fs := setupFs(t)
	b3 := blake3.Sum256([]byte(potato))

	for _, toPin := range []struct {
		backend string
		want    string
	}{
		{backend: SHA256, want: potatoSHA256},
		{backend: "md5", want: potatoMD5},
		{backend: CRC32, want: "fd3e65a3"},
		{backend: BLAKE3, want: hex.EncodeToString(b3[:])},
	} {
		tc := toPin
		t.Run(tc.backend, func(t *testing.T) {
			p, err := New(tc.backend, WithFs(fs))
			require.NoError(t, err)

			res, err := p.Checksum(ctx, "/repo/potato.txt")
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Checksum)
			assert.EqualValues(t, len(potato), res.FileLength)
			assert.EqualValues(t, potatoCRC32, res.CRC32)

			_, err = p.Checksum(ctx, "/repo/empty.txt")
			require.Error(t, err)
			assert.True(t, errors.Is(err, status.ErrEmptyFile))
			assert.Equal(t, errors.KindEmptyFile, errors.KindOf(err))

			_, err = p.Checksum(ctx, "/repo/missing.txt")
			assert.True(t, errors.Is(err, status.ErrReadFile))
		})
	}
}

func TestUnsupportedBackend(t *testing.T) {
	_, err := New("ROT13")
	require.Error(t, err)
	assert.Equal(t, errors.KindUnsupportedBackend, errors.KindOf(err))
}

func TestBlake2bTree(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	content := rand.Bytes(10*units.KiB + 17)
	require.NoError(t, afero.WriteFile(fs, "/big.bin", content, 0600))
	require.NoError(t, afero.WriteFile(fs, "/exact.bin", content[:4*units.KiB], 0600))

	single, err := New(BLAKE2B, WithFs(fs), WithLeafSize(units.KiB), WithWorkers(1))
	require.NoError(t, err)
	parallel, err := New(BLAKE2B, WithFs(fs), WithLeafSize(units.KiB), WithWorkers(8))
	require.NoError(t, err)

	for _, pth := range []string{"/big.bin", "/exact.bin"} {
		r1, err := single.Checksum(ctx, pth)
		require.NoError(t, err)
		r2, err := parallel.Checksum(ctx, pth)
		require.NoError(t, err)

		assert.Equal(t, r1, r2, "the tree hash does not depend on the number of workers")
		assert.Len(t, r1.Checksum, 128)
		assert.Equal(t, BLAKE2B, r1.ChecksumType)
	}

	other, err := New(BLAKE2B, WithFs(fs), WithLeafSize(2*units.KiB))
	require.NoError(t, err)
	r1, err := single.Checksum(ctx, "/big.bin")
	require.NoError(t, err)
	r2, err := other.Checksum(ctx, "/big.bin")
	require.NoError(t, err)
	assert.NotEqual(t, r1.Checksum, r2.Checksum, "the leaf size is part of the tree parameters")
	assert.Equal(t, r1.CRC32, r2.CRC32)
}

func TestWorm(t *testing.T) {
	ctx := context.Background()
	fs := setupFs(t)
	mtime := time.Unix(1500000000, 0)
	require.NoError(t, fs.Chtimes("/repo/potato.txt", mtime, mtime))

	p, err := New(WORM, WithFs(fs))
	require.NoError(t, err)

	res, err := p.Checksum(ctx, "/repo/potato.txt")
	require.NoError(t, err)
	assert.Equal(t, "s22-m1500000000--potato.txt", res.Checksum)
	assert.Equal(t, WORM, res.ChecksumType)
	assert.EqualValues(t, 22, res.FileLength)

	_, err = p.Checksum(ctx, "/repo/empty.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrEmptyFile))
	assert.Equal(t, errors.KindEmptyFile, errors.KindOf(err))

	_, err = p.Checksum(ctx, "/repo")
	assert.True(t, errors.Is(err, status.ErrReadFile))
}

func TestFromAnnexKey(t *testing.T) {
	res, err := FromAnnexKey("SHA256E-s22--" + potatoSHA256 + ".tar.gz")
	require.NoError(t, err)
	assert.Equal(t, potatoSHA256, res.Checksum)
	assert.Equal(t, SHA256, res.ChecksumType)
	assert.EqualValues(t, 22, res.FileLength)

	res, err = FromAnnexKey("MD5-s22--" + potatoMD5)
	require.NoError(t, err)
	assert.Equal(t, potatoMD5, res.Checksum)
	assert.Equal(t, MD5, res.ChecksumType)

	res, err = FromAnnexKey("WORM-s22-m1500000000--potato.txt")
	require.NoError(t, err)
	assert.Equal(t, "s22-m1500000000--potato.txt", res.Checksum)
	assert.Equal(t, WORM, res.ChecksumType)

	_, err = FromAnnexKey("XXHASH-s22--abc")
	assert.True(t, errors.Is(err, status.ErrUnsupportedBackend))

	_, err = FromAnnexKey("SHA256-s22")
	assert.True(t, errors.Is(err, status.ErrInvalidKey))
}

type mockAnnex struct {
	mock.Mock
}

func (m *mockAnnex) AnnexBackend(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockAnnex) AnnexInfo(ctx context.Context, path string) (vcs.AnnexFile, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(vcs.AnnexFile), args.Error(1)
}

func TestAnnexProvider(t *testing.T) {
	ctx := context.Background()
	fs := setupFs(t)
	require.NoError(t, afero.WriteFile(fs, "/repo/large.bin", []byte("not what the key says"), 0600))

	key := "SHA256-s1048576--" + potatoSHA256
	annex := new(mockAnnex)
	annex.On("AnnexBackend", mock.Anything).Return("SHA256", nil).Once()
	annex.On("AnnexInfo", mock.Anything, "/repo/large.bin").Return(vcs.AnnexFile{
		Path: "/repo/large.bin", Tracked: true, Present: true, Backend: "SHA256", Key: key,
	}, nil)
	annex.On("AnnexInfo", mock.Anything, "/repo/potato.txt").Return(vcs.AnnexFile{Path: "/repo/potato.txt"}, nil)

	p, err := ForConfig(config.Settings{GitAnnexHashAsChecksum: true, ChecksumBackend: SHA256}, annex, WithFs(fs))
	require.NoError(t, err)
	require.IsType(t, &AnnexProvider{}, p)

	// tracked files agree with the annex key, without reading the content
	res, err := p.Checksum(ctx, "/repo/large.bin")
	require.NoError(t, err)
	assert.Equal(t, potatoSHA256, res.Checksum)
	assert.EqualValues(t, 1048576, res.FileLength)

	// untracked files fall back to the supplement backend
	res, err = p.Checksum(ctx, "/repo/potato.txt")
	require.NoError(t, err)
	assert.Equal(t, potatoSHA256, res.Checksum)
	assert.EqualValues(t, len(potato), res.FileLength)

	annex.AssertExpectations(t)
}

func TestAnnexProviderCRC32Supplement(t *testing.T) {
	ctx := context.Background()
	fs := setupFs(t)

	annex := new(mockAnnex)
	annex.On("AnnexBackend", mock.Anything).Return("SHA256E", nil)
	annex.On("AnnexInfo", mock.Anything, "/repo/potato.txt").Return(vcs.AnnexFile{Path: "/repo/potato.txt", Tracked: true}, nil)

	p, err := ForConfig(config.Settings{GitAnnexHashAsChecksum: true, ChecksumBackend: CRC32}, annex, WithFs(fs))
	require.NoError(t, err)

	// tracked but not present
	res, err := p.Checksum(ctx, "/repo/potato.txt")
	require.NoError(t, err)
	assert.Equal(t, CRC32, res.ChecksumType)
	assert.Equal(t, "fd3e65a3", res.Checksum)
}

func TestAnnexProviderUnsupported(t *testing.T) {
	annex := new(mockAnnex)
	annex.On("AnnexBackend", mock.Anything).Return("XXHASH128", nil)

	p, err := ForConfig(config.Settings{GitAnnexHashAsChecksum: true}, annex, WithFs(setupFs(t)))
	require.NoError(t, err)

	_, err = p.Checksum(context.Background(), "/repo/potato.txt")
	require.Error(t, err)
	assert.Equal(t, errors.KindUnsupportedBackend, errors.KindOf(err), "never downgraded to another backend")
	annex.AssertNotCalled(t, "AnnexInfo", mock.Anything, mock.Anything)
}

func TestForConfigWithoutAnnex(t *testing.T) {
	p, err := ForConfig(config.Settings{GitAnnexHashAsChecksum: false, ChecksumBackend: MD5}, new(mockAnnex), WithFs(setupFs(t)))
	require.NoError(t, err)

	res, err := p.Checksum(context.Background(), "/repo/potato.txt")
	require.NoError(t, err)
	assert.Equal(t, potatoMD5, res.Checksum)
}

func TestSupported(t *testing.T) {
	for _, backend := range []string{SHA256, MD5, BLAKE3, CRC32, BLAKE2B, "sha256"} {
		assert.Truef(t, Supported(backend), "expected %s to be verifiable", backend)
	}
	assert.False(t, Supported(WORM))
	assert.False(t, Supported("SHA1"))
	assert.False(t, Supported(""))
}
