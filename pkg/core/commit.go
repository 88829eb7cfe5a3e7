package core

import (
	"context"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog"
	catalogstatus "github.com/oneconcern/datalink/pkg/catalog/status"
	"github.com/oneconcern/datalink/pkg/checksum"
	"github.com/oneconcern/datalink/pkg/cmdlog"
	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/core/status"
	"github.com/oneconcern/datalink/pkg/errors"
	"github.com/oneconcern/datalink/pkg/model"
)

const (
	defaultCommitMessage = "commit from datalink"
	syncCommitMessage    = "sync from datalink"
	untrackedPrefix      = "??"
)

// CommitOptions for commits
type CommitOptions struct {
	Message string

	// AutoAdd stages untracked files
	AutoAdd bool

	// IgnoreMissingParent drops parent data sets unknown to the catalog
	IgnoreMissingParent bool

	// Properties of the data set, stored in the working copy settings once the bindings are checked
	Properties map[string]string
}

func (o CommitOptions) args() []string {
	args := []string{"-m", o.Message}
	if o.AutoAdd {
		args = append(args, "--auto-add")
	}
	if !o.IgnoreMissingParent {
		args = append(args, "--strict-parents")
	}
	return append(args, propertyArgs(o.Properties)...)
}

// SyncOptions for syncs
type SyncOptions struct {
	IgnoreMissingParent bool
	Properties          map[string]string
}

func (o SyncOptions) args() []string {
	var args []string
	if !o.IgnoreMissingParent {
		args = append(args, "--strict-parents")
	}
	return append(args, propertyArgs(o.Properties)...)
}

func propertyArgs(props map[string]string) []string {
	args := make([]string, 0, 2*len(props))
	for _, name := range sortedKeys(props) {
		args = append(args, "--property", name+"="+props[name])
	}
	return args
}

// Commit the working copy holding path and register a new data set
func (d *Datalink) Commit(ctx context.Context, path string, opts CommitOptions) Result {
	wc, err := d.open(ctx, path)
	if err != nil {
		return failure(err)
	}
	return d.track(ctx, "commit", wc.root, opts.args(), func(entry *cmdlog.Entry) (Result, error) {
		if err := d.checkBindings(ctx, wc); err != nil {
			return Result{}, err
		}
		if err := d.setProperties(ctx, wc, opts.Properties); err != nil {
			return Result{}, err
		}
		client, release, err := d.connect(ctx, wc.settings)
		if err != nil {
			return Result{}, err
		}
		defer release()
		return d.commit(ctx, entry, client, wc, opts)
	})
}

// Sync commits the working copy unless the catalog already knows its current commit
func (d *Datalink) Sync(ctx context.Context, path string, opts SyncOptions) Result {
	wc, err := d.open(ctx, path)
	if err != nil {
		return failure(err)
	}
	return d.track(ctx, "sync", wc.root, opts.args(), func(entry *cmdlog.Entry) (Result, error) {
		if err := d.checkBindings(ctx, wc); err != nil {
			return Result{}, err
		}
		if err := d.setProperties(ctx, wc, opts.Properties); err != nil {
			return Result{}, err
		}
		client, release, err := d.connect(ctx, wc.settings)
		if err != nil {
			return Result{}, err
		}
		defer release()

		dataSetID, upToDate, err := d.upToDate(ctx, client, wc)
		if err != nil {
			return Result{}, err
		}
		if upToDate {
			return Result{
				Code:          CodeOK,
				Output:        "nothing to sync",
				NothingToSync: true,
				DataSetID:     dataSetID,
				Path:          wc.root,
			}, nil
		}
		return d.commit(ctx, entry, client, wc, CommitOptions{
			Message:             syncCommitMessage,
			AutoAdd:             true,
			IgnoreMissingParent: opts.IgnoreMissingParent,
		})
	})
}

// checkBindings reports all the settings a commit needs at once
func (d *Datalink) checkBindings(ctx context.Context, wc *workingCopy) error {
	missing, err := wc.cfg.Missing(ctx, config.User, config.DataSetType, config.OpenbisURL)
	if err != nil {
		return err
	}
	if wc.settings.ObjectID == "" && wc.settings.CollectionID == "" {
		missing = append(missing, config.ObjectID.String()+" or "+config.CollectionID.String())
	}
	if len(missing) > 0 {
		return config.ErrMissingParameters.WrapMessage("%s", strings.Join(missing, ", "))
	}
	return nil
}

// setProperties stores data set properties in the working copy settings
func (d *Datalink) setProperties(ctx context.Context, wc *workingCopy, props map[string]string) error {
	if len(props) == 0 {
		return nil
	}
	for _, name := range sortedKeys(props) {
		if err := wc.cfg.SetJSONField(ctx, config.DataSetProperties, name, props[name], config.Local); err != nil {
			return err
		}
	}
	settings, err := wc.cfg.Settings(ctx)
	if err != nil {
		return err
	}
	wc.settings = settings
	return nil
}

// upToDate tells if this location's content copy of the current data set holds the current commit
func (d *Datalink) upToDate(ctx context.Context, client catalog.Client, wc *workingCopy) (string, bool, error) {
	changes, err := wc.vcs.Status(ctx)
	if err != nil {
		return "", false, err
	}
	if len(changes) > 0 {
		return "", false, nil
	}
	id, err := wc.cfg.Repository(ctx)
	if err != nil {
		return "", false, err
	}
	if id.DataSetID == "" {
		return "", false, nil
	}
	hash, err := wc.vcs.CommitHash(ctx)
	if err != nil {
		return "", false, err
	}
	ds, err := client.GetDataSet(ctx, id.DataSetID)
	if errors.Is(err, catalogstatus.ErrDataSetNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	loc := wc.location()
	cc, ok := ds.FindContentCopy(model.ContentCopy{ExternalDMSID: loc.ExternalDMSID(), Path: wc.root})
	return id.DataSetID, ok && cc.GitCommitHash == hash, nil
}

func (d *Datalink) commit(ctx context.Context, entry *cmdlog.Entry, client catalog.Client, wc *workingCopy, opts CommitOptions) (Result, error) {
	if err := wc.vcs.Add(ctx, opts.AutoAdd); err != nil {
		return Result{}, err
	}
	changes, err := wc.vcs.Status(ctx)
	if err != nil {
		return Result{}, err
	}
	if staged(changes) {
		msg := opts.Message
		if msg == "" {
			msg = defaultCommitMessage
		}
		if err := wc.vcs.Commit(ctx, msg); err != nil {
			return Result{}, err
		}
	}
	hash, err := wc.vcs.CommitHash(ctx)
	if err != nil {
		return Result{}, err
	}

	id, err := d.identify(ctx, wc)
	if err != nil {
		return Result{}, err
	}
	dms, err := client.GetOrCreateExternalDMS(ctx, wc.location().ExternalDMS())
	if err != nil {
		return Result{}, err
	}
	parents, err := d.parents(ctx, client, wc, id, opts.IgnoreMissingParent)
	if err != nil {
		return Result{}, err
	}
	files, err := d.manifest(ctx, wc)
	if err != nil {
		return Result{}, err
	}
	cc, err := model.NewContentCopy(dms.Code, dms.Address, wc.root, hash, id.RepositoryID)
	if err != nil {
		return Result{}, err
	}

	code, err := client.CreatePermID(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := d.reserve(ctx, entry, code); err != nil {
		return Result{}, err
	}
	creation := model.DataSetCreation{
		Code:          code,
		Type:          wc.settings.DataSetType,
		Properties:    wc.settings.DataSetProperties,
		Parents:       parents,
		ContentCopies: []model.ContentCopy{cc},
		Files:         files,
	}
	if wc.settings.ObjectID != "" {
		creation.SampleID = wc.settings.ObjectID
	} else {
		creation.ExperimentID = wc.settings.CollectionID
	}
	dataSetID, err := client.CreateDataSet(ctx, creation)
	if err != nil {
		return Result{}, err
	}
	if err := wc.cfg.SetDataSetID(ctx, dataSetID); err != nil {
		return Result{}, err
	}

	d.l.Info("created data set", zap.String("id", dataSetID), zap.String("commit", hash),
		zap.Strings("parents", parents), zap.Int("files", len(files)))
	res := success("created data set %s for commit %s", dataSetID, hash)
	res.DataSetID = dataSetID
	res.Path = wc.root
	return res, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// staged tells if some change other than an untracked file is pending
func staged(changes []string) bool {
	for _, c := range changes {
		if !strings.HasPrefix(c, untrackedPrefix) {
			return true
		}
	}
	return false
}

// identify generates the identity of the working copy once.
//
// A working copy found at another location is adopted, as Addref does.
func (d *Datalink) identify(ctx context.Context, wc *workingCopy) (model.RepositoryIdentity, error) {
	loc := wc.location()
	if err := loc.Validate(); err != nil {
		return model.RepositoryIdentity{}, err
	}
	id, err := wc.cfg.Repository(ctx)
	if err != nil {
		return id, err
	}
	if id.IsIdentified() && id.ExternalDMSID == loc.ExternalDMSID() {
		return id, nil
	}
	return d.adopt(ctx, wc, id)
}

// adopt gives the working copy a new repository id, bound to its current location
func (d *Datalink) adopt(ctx context.Context, wc *workingCopy, id model.RepositoryIdentity) (model.RepositoryIdentity, error) {
	previous := id.ExternalDMSID
	id.RepositoryID = model.NewRepositoryID()
	id.ExternalDMSID = wc.location().ExternalDMSID()
	if err := wc.cfg.SetRepository(ctx, id); err != nil {
		return id, err
	}
	d.l.Info("identified working copy", zap.String("repository", id.RepositoryID),
		zap.String("external_dms", id.ExternalDMSID), zap.String("previous_external_dms", previous))
	return id, nil
}

// parents of the next data set: the current one, and the current one of the analysis parent if any
func (d *Datalink) parents(ctx context.Context, client catalog.Client, wc *workingCopy, id model.RepositoryIdentity, ignoreMissing bool) ([]string, error) {
	var candidates []string
	if id.DataSetID != "" {
		candidates = append(candidates, id.DataSetID)
	}
	if wc.settings.AnalysisParent != "" {
		cfg, err := d.resolver(wc.settings.AnalysisParent)
		if err != nil {
			return nil, err
		}
		pid, err := cfg.Repository(ctx)
		if err != nil {
			return nil, err
		}
		if pid.DataSetID != "" {
			candidates = append(candidates, pid.DataSetID)
		}
	}

	parents := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		_, err := client.GetDataSet(ctx, candidate)
		switch {
		case err == nil:
			parents = append(parents, candidate)
		case errors.Is(err, catalogstatus.ErrDataSetNotFound) && ignoreMissing:
			d.l.Warn("parent data set not found, ignored", zap.String("id", candidate))
		case errors.Is(err, catalogstatus.ErrDataSetNotFound):
			return nil, status.ErrMissingParent.WrapMessage("%s", candidate)
		default:
			return nil, err
		}
	}
	return parents, nil
}

// manifest lists the tracked files of a working copy, with their checksums
func (d *Datalink) manifest(ctx context.Context, wc *workingCopy) (model.Manifest, error) {
	tracked, err := wc.vcs.ListTrackedFiles(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(tracked)
	provider, err := checksum.ForConfig(wc.settings, wc.vcs, checksum.WithFs(d.fs))
	if err != nil {
		return nil, err
	}

	var (
		files model.Manifest
		dirs  = make(map[string]bool)
	)
	for _, f := range tracked {
		var parents []string
		for dir := path.Dir(f); dir != "." && dir != "/" && !dirs[dir]; dir = path.Dir(dir) {
			dirs[dir] = true
			parents = append(parents, dir)
		}
		for i := len(parents) - 1; i >= 0; i-- {
			files = append(files, model.FileEntry{Path: parents[i], Directory: true})
		}

		full := filepath.Join(wc.root, filepath.FromSlash(f))
		fi, err := d.fs.Stat(full)
		if err != nil {
			return nil, status.ErrManifest.WrapMessage("%s: %v", f, err)
		}
		entry := model.FileEntry{Path: f, FileLength: fi.Size()}
		if fi.Size() > 0 {
			res, err := provider.Checksum(ctx, full)
			if err != nil {
				return nil, err
			}
			entry.Checksum = res.Checksum
			entry.ChecksumType = res.ChecksumType
			entry.ChecksumCRC32 = res.CRC32
		}
		files = append(files, entry)
	}
	return files, nil
}
