package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/datalink/pkg/catalog/local"
	catalogstatus "github.com/oneconcern/datalink/pkg/catalog/status"
	"github.com/oneconcern/datalink/pkg/cmdlog"
	cmdlogstatus "github.com/oneconcern/datalink/pkg/cmdlog/status"
	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/core/status"
	"github.com/oneconcern/datalink/pkg/errors"
	"github.com/oneconcern/datalink/pkg/model"
	"github.com/oneconcern/datalink/pkg/storage/localfs"
	"github.com/oneconcern/datalink/pkg/transfer"
)

const (
	testHome = "/home/watney/.datalink"
	potatoes = "/data/potatoes"
	object   = "/MARS/ACIDALIA"
)

var sols = map[string]string{
	"sol1.txt":          "potatoes planted",
	"notes/water.txt":   "reclaimer online",
	"notes/deep/hab.md": "canvas holds",
	"empty.log":         "",
}

type fixture struct {
	fs      afero.Fs
	git     *fakeGit
	copier  *fakeCopier
	catalog *local.Catalog
	log     *cmdlog.Log
	global  *config.Resolver
	d       *Datalink
}

func setup(t *testing.T, opts ...Option) *fixture {
	ctx := context.Background()
	f := &fixture{fs: afero.NewMemMapFs()}
	f.git = newFakeGit(f.fs)
	f.copier = &fakeCopier{git: f.git}

	var err error
	f.catalog, err = local.New("", local.InMemory(), local.WithFs(f.fs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.catalog.Close() })

	f.global, err = config.New("", config.WithFs(f.fs), config.WithHome(testHome))
	require.NoError(t, err)
	for _, s := range []struct {
		p     config.Parameter
		value string
	}{
		{config.User, "watney"},
		{config.Hostname, "hab"},
		{config.OpenbisURL, "https://openbis.ares3.mars"},
		{config.DataSetType, "UNKNOWN"},
	} {
		require.NoError(t, f.global.Set(ctx, s.p, s.value, config.Global))
	}

	store, err := localfs.NewAtomic(afero.NewBasePathFs(f.fs, filepath.Join(testHome, "log")))
	require.NoError(t, err)
	f.log = cmdlog.New(store)

	f.d = f.datalink(opts...)
	return f
}

func (f *fixture) datalink(opts ...Option) *Datalink {
	base := []Option{
		WithFs(f.fs),
		WithHome(testHome),
		WithAnnex(false),
		WithVCS(f.git.factory()),
		WithCopier(f.copier),
		WithCatalog(f.catalog),
		WithCommandLog(f.log),
	}
	return New(append(base, opts...)...)
}

func (f *fixture) workingCopy(t *testing.T, root string) {
	requireSuccess(t, f.d.Init(context.Background(), root, InitOptions{ObjectID: object}))
	require.NoError(t, writeFiles(f.fs, root, sols))
}

func (f *fixture) identity(t *testing.T, root string) model.RepositoryIdentity {
	cfg, err := config.New(root, config.WithFs(f.fs), config.WithHome(testHome))
	require.NoError(t, err)
	id, err := cfg.Repository(context.Background())
	require.NoError(t, err)
	return id
}

func (f *fixture) dataSet(t *testing.T, id string) model.DataSet {
	ds, err := f.catalog.GetDataSet(context.Background(), id)
	require.NoError(t, err)
	return ds
}

func requireSuccess(t *testing.T, res Result) {
	t.Helper()
	require.Truef(t, res.Success(), "unexpected failure: %s", res.Output)
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	f := setup(t, WithAnnex(true))

	res := f.d.Init(ctx, potatoes, InitOptions{Description: "ares3 habitat", ObjectID: object})
	requireSuccess(t, res)
	assert.Equal(t, potatoes, res.Path)

	ok, err := afero.DirExists(f.fs, filepath.Join(potatoes, config.PublicDir))
	require.NoError(t, err)
	assert.True(t, ok)
	attrs, err := afero.ReadFile(f.fs, filepath.Join(potatoes, gitAttributes))
	require.NoError(t, err)
	assert.Contains(t, string(attrs), "* annex.backend=SHA256E")
	assert.Contains(t, string(attrs), largeFileRule)

	cfg, err := config.New(potatoes, config.WithFs(f.fs), config.WithHome(testHome))
	require.NoError(t, err)
	v, err := cfg.Restrict(config.Local).GetString(ctx, config.ObjectID)
	require.NoError(t, err)
	assert.Equal(t, object, v)
	assert.False(t, f.identity(t, potatoes).IsIdentified(), "init does not create an identity")

	res = f.d.Init(ctx, potatoes, InitOptions{})
	assert.Equal(t, CodeFailure, res.Code)
	assert.True(t, errors.Is(res.Err, status.ErrAlreadyInitialized))
	assert.Equal(t, errors.KindInvalidRepository, res.Kind())
}

func TestCommitLineage(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)

	first := f.d.Commit(ctx, potatoes, CommitOptions{Message: "sol 1", AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, first)
	require.NotEmpty(t, first.DataSetID)
	id1 := f.identity(t, potatoes)
	assert.Equal(t, first.DataSetID, id1.DataSetID)
	assert.Equal(t, model.Location{User: "watney", Hostname: "hab", Path: potatoes}.ExternalDMSID(), id1.ExternalDMSID)

	ds := f.dataSet(t, first.DataSetID)
	assert.Equal(t, "UNKNOWN", ds.Type)
	assert.Equal(t, object, ds.SampleID)
	assert.Empty(t, ds.Parents)
	require.Len(t, ds.ContentCopies, 1)
	assert.Equal(t, potatoes, ds.ContentCopies[0].Path)
	assert.Equal(t, id1.RepositoryID, ds.ContentCopies[0].GitRepositoryID)
	assert.NotEmpty(t, ds.ContentCopies[0].GitCommitHash)

	sol, ok := ds.Files.Lookup("sol1.txt")
	require.True(t, ok)
	assert.EqualValues(t, len(sols["sol1.txt"]), sol.FileLength)
	assert.Equal(t, sha256Hex(sols["sol1.txt"]), sol.Checksum)
	assert.Equal(t, "SHA256", sol.ChecksumType)
	assert.NotZero(t, sol.ChecksumCRC32)

	empty, ok := ds.Files.Lookup("empty.log")
	require.True(t, ok)
	assert.Empty(t, empty.Checksum, "empty files carry no checksum")

	for _, dir := range []string{"notes", "notes/deep"} {
		e, ok := ds.Files.Lookup(dir)
		require.True(t, ok, dir)
		assert.True(t, e.Directory)
	}

	require.NoError(t, writeFiles(f.fs, potatoes, map[string]string{"sol1.txt": "potatoes sprouting"}))
	second := f.d.Commit(ctx, potatoes, CommitOptions{Message: "sol 2", IgnoreMissingParent: true})
	requireSuccess(t, second)
	assert.NotEqual(t, first.DataSetID, second.DataSetID)

	ds2 := f.dataSet(t, second.DataSetID)
	assert.Equal(t, []string{first.DataSetID}, ds2.Parents)
	assert.NotEqual(t, ds.ContentCopies[0].GitCommitHash, ds2.ContentCopies[0].GitCommitHash)

	id2 := f.identity(t, potatoes)
	assert.Equal(t, id1.RepositoryID, id2.RepositoryID)
	assert.Equal(t, id1.ExternalDMSID, id2.ExternalDMSID)
	assert.Equal(t, second.DataSetID, id2.DataSetID)

	pending, err := f.log.Pending(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCommitWithoutAutoAdd(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	requireSuccess(t, f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true}))

	require.NoError(t, writeFiles(f.fs, potatoes, map[string]string{
		"sol1.txt":       "potatoes sprouting",
		"notes/log.txt":  "not for the catalog",
		"rover/plan.txt": "pathfinder",
	}))
	res := f.d.Commit(ctx, potatoes, CommitOptions{Message: "tracked only", IgnoreMissingParent: true})
	requireSuccess(t, res)

	ds := f.dataSet(t, res.DataSetID)
	sol, ok := ds.Files.Lookup("sol1.txt")
	require.True(t, ok)
	assert.Equal(t, sha256Hex("potatoes sprouting"), sol.Checksum)
	for _, untracked := range []string{"notes/log.txt", "rover/plan.txt", "rover"} {
		_, ok := ds.Files.Lookup(untracked)
		assert.Falsef(t, ok, "%s is not in the manifest", untracked)
	}

	st := f.d.Status(ctx, potatoes)
	requireSuccess(t, st)
	assert.Contains(t, st.Output, "?? notes/log.txt")
	assert.Contains(t, st.Output, "?? rover/plan.txt")
}

func TestCommitMissingParent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)

	cfg, err := config.New(potatoes, config.WithFs(f.fs), config.WithHome(testHome))
	require.NoError(t, err)
	require.NoError(t, cfg.SetDataSetID(ctx, "20180101000000000-404"))

	res := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true})
	assert.Equal(t, CodeFailure, res.Code)
	assert.True(t, errors.Is(res.Err, status.ErrMissingParent))
	assert.Contains(t, res.Output, "20180101000000000-404")

	res = f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, res)
	assert.Empty(t, f.dataSet(t, res.DataSetID).Parents)
}

func TestCommitMissingBindings(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	requireSuccess(t, f.d.Init(ctx, potatoes, InitOptions{}))
	require.NoError(t, f.global.Clear(ctx, config.CategoryConfig, "user", config.Global))

	res := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, Properties: map[string]string{"crop": "potatoes"}})
	assert.Equal(t, CodeFailure, res.Code)
	assert.Equal(t, errors.KindMissingParameters, res.Kind())
	assert.Contains(t, res.Output, "config.user, object.id or collection.id")
	assert.False(t, f.identity(t, potatoes).IsIdentified(), "nothing is registered")

	cfg, err := config.New(potatoes, config.WithFs(f.fs), config.WithHome(testHome))
	require.NoError(t, err)
	_, found, err := cfg.GetAt(ctx, config.DataSetProperties, config.Local)
	require.NoError(t, err)
	assert.False(t, found, "properties are not stored by a failed commit")

	pending, err := f.log.Pending(ctx, potatoes)
	require.NoError(t, err)
	assert.Empty(t, pending)

	res = f.d.Commit(ctx, "/data/nowhere", CommitOptions{})
	assert.True(t, errors.Is(res.Err, status.ErrNotWorkingCopy))
}

func TestCommitProperties(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)

	res := f.d.Commit(ctx, potatoes, CommitOptions{
		AutoAdd:             true,
		IgnoreMissingParent: true,
		Properties:          map[string]string{"crop": "potatoes", "sol": "32"},
	})
	requireSuccess(t, res)
	assert.Equal(t, map[string]string{"CROP": "potatoes", "SOL": "32"}, f.dataSet(t, res.DataSetID).Properties)

	require.NoError(t, writeFiles(f.fs, potatoes, map[string]string{"sol1.txt": "potatoes sprouting"}))
	res = f.d.Sync(ctx, potatoes, SyncOptions{IgnoreMissingParent: true, Properties: map[string]string{"sol": "33"}})
	requireSuccess(t, res)
	assert.Equal(t, map[string]string{"CROP": "potatoes", "SOL": "33"}, f.dataSet(t, res.DataSetID).Properties,
		"properties are kept in the working copy settings")
}

func TestSyncNothingToSync(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)

	first := f.d.Sync(ctx, potatoes, SyncOptions{IgnoreMissingParent: true})
	requireSuccess(t, first)
	assert.False(t, first.NothingToSync)
	require.NotEmpty(t, first.DataSetID)

	again := f.d.Sync(ctx, filepath.Join(potatoes, "notes"), SyncOptions{IgnoreMissingParent: true})
	requireSuccess(t, again)
	assert.True(t, again.NothingToSync)
	assert.Equal(t, first.DataSetID, again.DataSetID)
	assert.Equal(t, first.DataSetID, f.identity(t, potatoes).DataSetID)

	require.NoError(t, writeFiles(f.fs, potatoes, map[string]string{"sol2.txt": "dust storm"}))
	next := f.d.Sync(ctx, potatoes, SyncOptions{IgnoreMissingParent: true})
	requireSuccess(t, next)
	assert.False(t, next.NothingToSync)
	assert.Equal(t, []string{first.DataSetID}, f.dataSet(t, next.DataSetID).Parents)
	_, ok := f.dataSet(t, next.DataSetID).Files.Lookup("sol2.txt")
	assert.True(t, ok, "sync adds untracked files")
}

func TestAddrefIdempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	committed := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, committed)

	res := f.d.Addref(ctx, potatoes)
	requireSuccess(t, res)
	assert.True(t, res.AlreadyExists, "commit registers the content copy")

	backup, err := f.copier.Copy(ctx, sourceOf(potatoes), "/backup")
	require.NoError(t, err)

	res = f.d.Addref(ctx, backup)
	requireSuccess(t, res)
	assert.False(t, res.AlreadyExists)
	require.Len(t, f.dataSet(t, committed.DataSetID).ContentCopies, 2)

	original, copied := f.identity(t, potatoes), f.identity(t, backup)
	assert.NotEqual(t, original.RepositoryID, copied.RepositoryID, "a copy becomes a repository of its own")
	assert.NotEqual(t, original.ExternalDMSID, copied.ExternalDMSID)
	assert.Equal(t, original.DataSetID, copied.DataSetID)

	res = f.d.Addref(ctx, backup)
	assert.Equal(t, CodeOK, res.Code)
	assert.True(t, res.AlreadyExists)
	assert.Contains(t, res.Output, "already exists")
	assert.Len(t, f.dataSet(t, committed.DataSetID).ContentCopies, 2)
}

func TestAddrefErrors(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)

	res := f.d.Addref(ctx, potatoes)
	assert.True(t, errors.Is(res.Err, status.ErrNotSynchronized))

	cfg, err := config.New(potatoes, config.WithFs(f.fs), config.WithHome(testHome))
	require.NoError(t, err)
	require.NoError(t, cfg.SetDataSetID(ctx, "20180101000000000-404"))
	res = f.d.Addref(ctx, potatoes)
	assert.Equal(t, errors.KindDataSetNotFound, res.Kind())

	res = f.d.Addref(ctx, "/data/nowhere")
	assert.Equal(t, errors.KindInvalidRepository, res.Kind())
}

func TestCopiedWorkingCopyIsAdopted(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	committed := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, committed)
	source := f.identity(t, potatoes)

	// commit from a copy made outside datalink
	committedCopy, err := f.copier.Copy(ctx, sourceOf(potatoes), "/backup")
	require.NoError(t, err)
	res := f.d.Commit(ctx, committedCopy, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, res)
	byCommit := f.identity(t, committedCopy)
	assert.NotEqual(t, source.RepositoryID, byCommit.RepositoryID)
	assert.Equal(t, model.Location{User: "watney", Hostname: "hab", Path: committedCopy}.ExternalDMSID(), byCommit.ExternalDMSID)
	assert.Equal(t, []string{committed.DataSetID}, f.dataSet(t, res.DataSetID).Parents)

	// addref from a copy made outside datalink
	referencedCopy, err := f.copier.Copy(ctx, sourceOf(potatoes), "/archive")
	require.NoError(t, err)
	requireSuccess(t, f.d.Addref(ctx, referencedCopy))
	byAddref := f.identity(t, referencedCopy)
	assert.NotEqual(t, source.RepositoryID, byAddref.RepositoryID)
	assert.Equal(t, model.Location{User: "watney", Hostname: "hab", Path: referencedCopy}.ExternalDMSID(), byAddref.ExternalDMSID)

	assert.Equal(t, source, f.identity(t, potatoes), "the source identity is untouched")
}

func TestRemoverefExactness(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	committed := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, committed)
	backup, err := f.copier.Copy(ctx, sourceOf(potatoes), "/backup")
	require.NoError(t, err)
	requireSuccess(t, f.d.Addref(ctx, backup))

	res := f.d.Removeref(ctx, potatoes, "")
	requireSuccess(t, res)
	copies := f.dataSet(t, committed.DataSetID).ContentCopies
	require.Len(t, copies, 1)
	assert.Equal(t, backup, copies[0].Path)

	res = f.d.Removeref(ctx, potatoes, "")
	assert.Equal(t, CodeFailure, res.Code)
	assert.Equal(t, errors.KindContentCopyNotFound, res.Kind())
	assert.Contains(t, res.Output, "content copy not found")
	assert.Len(t, f.dataSet(t, committed.DataSetID).ContentCopies, 1)

	// the working copy needs not exist anymore with an explicit data set
	require.NoError(t, f.fs.RemoveAll(backup))
	requireSuccess(t, f.d.Removeref(ctx, backup, committed.DataSetID))
	assert.Empty(t, f.dataSet(t, committed.DataSetID).ContentCopies)
}

func TestClone(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	committed := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, committed)

	// the working copy moves on without syncing
	require.NoError(t, writeFiles(f.fs, potatoes, map[string]string{"sol1.txt": "potatoes rotten"}))
	wc := f.git.factory()(potatoes)
	require.NoError(t, wc.Add(ctx, false))
	require.NoError(t, wc.Commit(ctx, "unsynced"))

	res := f.d.Clone(ctx, committed.DataSetID, CloneOptions{SSHUser: "johanssen", ContentCopyIndex: -1, Destination: "/backup"})
	requireSuccess(t, res)
	clone := filepath.Join("/backup", "potatoes")
	assert.Equal(t, clone, res.Path)

	require.Len(t, f.copier.sources, 1)
	assert.Equal(t, "hab", f.copier.sources[0].Host)
	assert.Equal(t, "johanssen", f.copier.sources[0].User)
	assert.Equal(t, potatoes, f.copier.sources[0].Path)

	b, err := afero.ReadFile(f.fs, filepath.Join(clone, "sol1.txt"))
	require.NoError(t, err)
	assert.Equal(t, sols["sol1.txt"], string(b), "the clone is at the registered commit")

	ds := f.dataSet(t, committed.DataSetID)
	require.Len(t, ds.ContentCopies, 2)
	cloned, ok := ds.FindContentCopy(model.ContentCopy{ExternalDMSID: f.identity(t, clone).ExternalDMSID, Path: clone})
	require.True(t, ok)
	assert.Equal(t, ds.ContentCopies[0].GitCommitHash, cloned.GitCommitHash)

	id := f.identity(t, clone)
	assert.Equal(t, committed.DataSetID, id.DataSetID)
	assert.NotEqual(t, f.identity(t, potatoes).RepositoryID, id.RepositoryID)

	res = f.d.Clone(ctx, committed.DataSetID, CloneOptions{Destination: "/elsewhere", ContentCopyIndex: -1})
	assert.Equal(t, errors.KindAmbiguousContentCopy, res.Kind())
	res = f.d.Clone(ctx, committed.DataSetID, CloneOptions{Destination: "/elsewhere", ContentCopyIndex: 2})
	assert.True(t, errors.Is(res.Err, model.ErrInvalidIndex))
	res = f.d.Clone(ctx, "20180101000000000-404", CloneOptions{Destination: "/elsewhere"})
	assert.True(t, errors.Is(res.Err, catalogstatus.ErrDataSetNotFound))
}

func TestCloneIntegrityCheck(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	committed := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, committed)

	// corrupted without any commit: checkout keeps the change
	require.NoError(t, writeFiles(f.fs, potatoes, map[string]string{"notes/water.txt": "reclaimer broken"}))

	res := f.d.Clone(ctx, committed.DataSetID, CloneOptions{ContentCopyIndex: 0, Destination: "/backup"})
	assert.Equal(t, CodeFatal, res.Code)
	assert.Contains(t, res.Output, "notes/water.txt")
	assert.Len(t, f.dataSet(t, committed.DataSetID).ContentCopies, 1)

	res = f.d.Clone(ctx, committed.DataSetID, CloneOptions{ContentCopyIndex: 0, Destination: "/archive", SkipIntegrityCheck: true})
	requireSuccess(t, res)
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	committed := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, committed)

	res := f.d.Move(ctx, committed.DataSetID, CloneOptions{ContentCopyIndex: -1, Destination: "/rover"})
	requireSuccess(t, res)

	copies := f.dataSet(t, committed.DataSetID).ContentCopies
	require.Len(t, copies, 1)
	assert.Equal(t, "/rover/potatoes", copies[0].Path)

	ok, err := afero.Exists(f.fs, filepath.Join(potatoes, "sol1.txt"))
	require.NoError(t, err)
	assert.True(t, ok, "source files are kept")
}

func TestDownload(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	committed := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, committed)

	res := f.d.Download(ctx, committed.DataSetID, DownloadOptions{ContentCopyIndex: -1, Files: []string{"notes"}, Destination: "/downloads"})
	requireSuccess(t, res)
	target := filepath.Join("/downloads", committed.DataSetID)
	assert.Equal(t, target, res.Path)

	for _, p := range []string{"notes/water.txt", "notes/deep/hab.md"} {
		b, err := afero.ReadFile(f.fs, filepath.Join(target, filepath.FromSlash(p)))
		require.NoError(t, err)
		assert.Equal(t, sols[p], string(b))
	}
	ok, err := afero.Exists(f.fs, filepath.Join(target, "sol1.txt"))
	require.NoError(t, err)
	assert.False(t, ok)

	res = f.d.Download(ctx, committed.DataSetID, DownloadOptions{ContentCopyIndex: -1, Destination: "/downloads"})
	requireSuccess(t, res)
	assert.Contains(t, res.Output, "2 already present")
	assert.Len(t, f.dataSet(t, committed.DataSetID).ContentCopies, 1, "downloads register nothing")

	res = f.d.Download(ctx, committed.DataSetID, DownloadOptions{ContentCopyIndex: -1, Files: []string{"sol9.txt"}})
	assert.True(t, errors.Is(res.Err, status.ErrFileNotInDataSet))
}

// crashingCatalog loses the answer of the catalog when a data set is created
type crashingCatalog struct {
	*local.Catalog
}

func (c crashingCatalog) CreateDataSet(ctx context.Context, creation model.DataSetCreation) (string, error) {
	if _, err := c.Catalog.CreateDataSet(ctx, creation); err != nil {
		return "", err
	}
	return "", catalogstatus.ErrTransport.WrapMessage("connection reset by peer")
}

func TestRecover(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)

	crashing := f.datalink(WithCatalog(crashingCatalog{f.catalog}))
	res := crashing.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	assert.Equal(t, CodeFatal, res.Code)
	assert.Empty(t, f.identity(t, potatoes).DataSetID)

	pending, err := f.log.Pending(ctx, potatoes)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	reserved := pending[0].DataSetID
	require.NotEmpty(t, reserved)
	f.dataSet(t, reserved)

	res = f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true})
	assert.True(t, errors.Is(res.Err, cmdlogstatus.ErrUnfinished))

	res = f.d.Recover(ctx, potatoes)
	requireSuccess(t, res)
	assert.Equal(t, reserved, res.DataSetID)
	assert.Equal(t, reserved, f.identity(t, potatoes).DataSetID)

	require.NoError(t, writeFiles(f.fs, potatoes, map[string]string{"sol2.txt": "dust storm"}))
	res = f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true})
	requireSuccess(t, res)
	assert.Equal(t, []string{reserved}, f.dataSet(t, res.DataSetID).Parents)

	res = f.d.Recover(ctx, potatoes)
	requireSuccess(t, res)
	assert.Equal(t, "nothing to recover", res.Output)
}

func TestInitAnalysis(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)
	parent := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, parent)

	analysis := filepath.Join(potatoes, "analysis")
	res := f.d.InitAnalysis(ctx, analysis, potatoes, InitOptions{ObjectID: object})
	requireSuccess(t, res)
	ignored, err := afero.ReadFile(f.fs, filepath.Join(potatoes, gitIgnore))
	require.NoError(t, err)
	assert.Equal(t, "/analysis/\n", string(ignored))

	require.NoError(t, writeFiles(f.fs, analysis, map[string]string{"yield.csv": "sol,kg\n1,0\n"}))
	res = f.d.Commit(ctx, analysis, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, res)
	assert.Equal(t, []string{parent.DataSetID}, f.dataSet(t, res.DataSetID).Parents)
	_, ok := f.dataSet(t, res.DataSetID).Files.Lookup("yield.csv")
	assert.True(t, ok)

	res = f.d.InitAnalysis(ctx, "/data/tomatoes", potatoes, InitOptions{})
	assert.True(t, errors.Is(res.Err, status.ErrNotInParent))
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.workingCopy(t, potatoes)

	res := f.d.Status(ctx, potatoes)
	requireSuccess(t, res)
	assert.Contains(t, res.Output, "?? sol1.txt")
	assert.Contains(t, res.Output, "data set id: (none)")

	committed := f.d.Commit(ctx, potatoes, CommitOptions{AutoAdd: true, IgnoreMissingParent: true})
	requireSuccess(t, committed)
	res = f.d.Status(ctx, potatoes)
	requireSuccess(t, res)
	assert.NotContains(t, res.Output, "sol1.txt")
	assert.Contains(t, res.Output, "data set id: "+committed.DataSetID)
}

func sourceOf(root string) transfer.Source {
	return transfer.Source{Host: "hab", Path: root}
}
