// Copyright © 2018 One Concern

// Package core implements the synchronization protocol between working copies and the catalog.
//
// Every command returns a Result. Expected conditions, such as missing settings or
// content copies, are reported as failures carrying a typed error: they never abort the process.
package core

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog"
	"github.com/oneconcern/datalink/pkg/catalog/local"
	"github.com/oneconcern/datalink/pkg/catalog/openbis"
	catalogstatus "github.com/oneconcern/datalink/pkg/catalog/status"
	"github.com/oneconcern/datalink/pkg/cmdlog"
	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/core/status"
	"github.com/oneconcern/datalink/pkg/errors"
	"github.com/oneconcern/datalink/pkg/model"
	"github.com/oneconcern/datalink/pkg/transfer"
	"github.com/oneconcern/datalink/pkg/vcs"
	"github.com/oneconcern/datalink/pkg/vcs/git"
)

const localCatalogScheme = "local://"

// CatalogFactory connects to the catalog configured by the settings
type CatalogFactory func(context.Context, config.Settings) (catalog.Client, error)

// VCSFactory opens the version control facade for a path
type VCSFactory func(path string) vcs.Facade

// Datalink runs commands against working copies
type Datalink struct {
	fs          afero.Fs
	home        string
	password    string
	annex       bool
	newCatalog  CatalogFactory
	ownsCatalog bool
	newVCS      VCSFactory
	copier      transfer.Copier
	log         *cmdlog.Log
	l           *zap.Logger
}

// Option for datalink commands
type Option func(*Datalink)

// WithFs sets the file system working copies live on
func WithFs(fs afero.Fs) Option {
	return func(d *Datalink) {
		if fs != nil {
			d.fs = fs
		}
	}
}

// WithHome sets the root of global settings
func WithHome(home string) Option {
	return func(d *Datalink) {
		if home != "" {
			d.home = home
		}
	}
}

// WithPassword sets the password used to log into the catalog
func WithPassword(password string) Option {
	return func(d *Datalink) {
		d.password = password
	}
}

// WithAnnex enables git-annex in new working copies
func WithAnnex(enabled bool) Option {
	return func(d *Datalink) {
		d.annex = enabled
	}
}

// WithCatalog uses a given catalog client
func WithCatalog(c catalog.Client) Option {
	return WithCatalogFactory(func(context.Context, config.Settings) (catalog.Client, error) {
		return c, nil
	})
}

// WithCatalogFactory sets how catalog clients are built
func WithCatalogFactory(f CatalogFactory) Option {
	return func(d *Datalink) {
		if f != nil {
			d.newCatalog = f
			d.ownsCatalog = false
		}
	}
}

// WithVCS sets how version control facades are built
func WithVCS(f VCSFactory) Option {
	return func(d *Datalink) {
		if f != nil {
			d.newVCS = f
		}
	}
}

// WithCopier sets how content copies are cloned
func WithCopier(c transfer.Copier) Option {
	return func(d *Datalink) {
		d.copier = c
	}
}

// WithCommandLog tracks mutating commands in a command log
func WithCommandLog(log *cmdlog.Log) Option {
	return func(d *Datalink) {
		d.log = log
	}
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Datalink) {
		if l != nil {
			d.l = l
		}
	}
}

// New datalink commands
func New(opts ...Option) *Datalink {
	d := &Datalink{
		fs:    afero.NewOsFs(),
		home:  config.DefaultHome(),
		annex: true,
		l:     zap.NewNop(),
	}
	d.newVCS = func(path string) vcs.Facade {
		return git.New(path, git.WithLogger(d.l))
	}
	d.newCatalog = d.openCatalog
	d.ownsCatalog = true
	for _, apply := range opts {
		apply(d)
	}
	return d
}

// openCatalog connects to openBIS, or to an embedded catalog for local:// URLs
func (d *Datalink) openCatalog(ctx context.Context, s config.Settings) (catalog.Client, error) {
	if strings.HasPrefix(s.OpenbisURL, localCatalogScheme) {
		return local.New(strings.TrimPrefix(s.OpenbisURL, localCatalogScheme), local.WithFs(d.fs), local.WithLogger(d.l))
	}
	if s.OpenbisURL == "" {
		return nil, catalogstatus.ErrUnsupportedURL.WrapMessage("%s is not set", config.OpenbisURL)
	}
	return openbis.New(s.OpenbisURL,
		openbis.WithCredentials(s.User, d.password),
		openbis.WithFileservice(s.FileserviceURL),
		openbis.WithVerifyCertificates(s.VerifyCertificates),
		openbis.WithAllowOnlyHTTPS(s.AllowOnlyHTTPS),
		openbis.WithLogger(d.l),
	)
}

// connect to the catalog. The returned function releases clients opened by the command.
func (d *Datalink) connect(ctx context.Context, s config.Settings) (catalog.Client, func(), error) {
	c, err := d.newCatalog(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	release := func() {}
	if closer, ok := c.(io.Closer); ok && d.ownsCatalog {
		release = func() {
			if err := closer.Close(); err != nil {
				d.l.Warn("closing catalog client", zap.Error(err))
			}
		}
	}
	return c, release, nil
}

func (d *Datalink) resolver(root string) (*config.Resolver, error) {
	return config.New(root, config.WithFs(d.fs), config.WithHome(d.home), config.WithLogger(d.l))
}

// globalSettings resolves settings outside of any working copy
func (d *Datalink) globalSettings(ctx context.Context) (config.Settings, error) {
	cfg, err := d.resolver("")
	if err != nil {
		return config.Settings{}, err
	}
	return cfg.Settings(ctx)
}

// workingCopy is an opened working copy
type workingCopy struct {
	root     string
	cfg      *config.Resolver
	vcs      vcs.Facade
	settings config.Settings
}

func (w *workingCopy) location() model.Location {
	return w.settings.Location(w.root)
}

// open the working copy holding path
func (d *Datalink) open(ctx context.Context, path string) (*workingCopy, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, status.ErrNotWorkingCopy.WrapMessage("%s: %v", path, err)
	}
	root, err := d.newVCS(abs).TopLevelPath(ctx)
	if err != nil {
		return nil, status.ErrNotWorkingCopy.WrapMessage("%s: %v", abs, err)
	}
	if ok, _ := afero.DirExists(d.fs, filepath.Join(root, config.PublicDir)); !ok {
		return nil, status.ErrNotWorkingCopy.WrapMessage("%s", root)
	}
	cfg, err := d.resolver(root)
	if err != nil {
		return nil, err
	}
	settings, err := cfg.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return &workingCopy{root: root, cfg: cfg, vcs: d.newVCS(root), settings: settings}, nil
}

// track runs a mutating command, recorded in the command log if any
func (d *Datalink) track(ctx context.Context, command, path string, args []string, run func(*cmdlog.Entry) (Result, error)) Result {
	if d.log == nil {
		res, err := run(nil)
		if err != nil {
			return failure(err)
		}
		return res
	}
	abs, _ := filepath.Abs(path)
	if err := d.log.Check(ctx, abs); err != nil {
		return failure(err)
	}
	entry, err := d.log.Start(ctx, command, abs, args...)
	if err != nil {
		return failure(err)
	}
	res, err := run(entry)
	if err != nil {
		// a reserved data set may exist in the catalog after a transport failure
		if entry.DataSetID == "" || errors.KindOf(err).IsRecoverable() {
			_ = d.log.Done(ctx, entry)
		}
		return failure(err)
	}
	if err := d.log.Done(ctx, entry); err != nil {
		d.l.Warn("could not clear command log entry", zap.String("token", entry.Token), zap.Error(err))
	}
	return res
}

// reserve records the code of a data set about to be created
func (d *Datalink) reserve(ctx context.Context, entry *cmdlog.Entry, code string) error {
	if d.log == nil || entry == nil {
		return nil
	}
	return d.log.Record(ctx, entry, code)
}
