package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/config"
	"github.com/oneconcern/datalink/pkg/core/status"
)

const (
	gitAttributes = ".gitattributes"
	gitIgnore     = ".gitignore"

	// files above this size go to the annex
	largeFileRule = "* annex.largefiles=(largerthan=100kb)"
)

// InitOptions for new working copies
type InitOptions struct {
	// Description names the annex repository
	Description string

	ObjectID     string
	CollectionID string
}

// Init a working copy at path
func (d *Datalink) Init(ctx context.Context, path string, opts InitOptions) Result {
	root, err := d.init(ctx, path, opts)
	if err != nil {
		return failure(err)
	}
	res := success("initialized working copy %s", root)
	res.Path = root
	return res
}

// InitAnalysis initializes a working copy inside a parent working copy.
//
// The parent ignores the analysis folder, and each commit of the analysis
// has the latest data set of the parent as an extra parent.
func (d *Datalink) InitAnalysis(ctx context.Context, path, parent string, opts InitOptions) Result {
	pwc, err := d.open(ctx, parent)
	if err != nil {
		return failure(err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return failure(status.ErrNotInParent.WrapMessage("%s: %v", path, err))
	}
	rel, err := filepath.Rel(pwc.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return failure(status.ErrNotInParent.WrapMessage("%s is not inside %s", abs, pwc.root))
	}

	root, err := d.init(ctx, abs, opts)
	if err != nil {
		return failure(err)
	}
	cfg, err := d.resolver(root)
	if err != nil {
		return failure(err)
	}
	if err := cfg.Set(ctx, config.RepositoryAnalysisParent, pwc.root, config.Local); err != nil {
		return failure(err)
	}
	if err := d.ignore(pwc.root, filepath.ToSlash(rel)); err != nil {
		return failure(err)
	}
	res := success("initialized analysis %s of %s", root, pwc.root)
	res.Path = root
	return res
}

func (d *Datalink) init(ctx context.Context, path string, opts InitOptions) (string, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return "", status.ErrNotWorkingCopy.WrapMessage("%s: %v", path, err)
	}
	if ok, _ := afero.DirExists(d.fs, filepath.Join(root, config.PublicDir)); ok {
		return "", status.ErrAlreadyInitialized.WrapMessage("%s", root)
	}
	if err := d.newVCS(root).Init(ctx, root, opts.Description, d.annex); err != nil {
		return "", err
	}

	cfg, err := d.resolver(root)
	if err != nil {
		return "", err
	}
	if err := cfg.CreateLocations(ctx); err != nil {
		return "", err
	}
	if d.annex {
		backend, err := cfg.GetString(ctx, config.GitAnnexBackend)
		if err != nil {
			return "", err
		}
		attrs := fmt.Sprintf("* annex.backend=%s\n%s\n", backend, largeFileRule)
		if err := afero.WriteFile(d.fs, filepath.Join(root, gitAttributes), []byte(attrs), 0644); err != nil {
			return "", status.ErrInit.Wrap(err)
		}
	}
	if opts.ObjectID != "" {
		if err := cfg.Set(ctx, config.ObjectID, opts.ObjectID, config.Local); err != nil {
			return "", err
		}
	}
	if opts.CollectionID != "" {
		if err := cfg.Set(ctx, config.CollectionID, opts.CollectionID, config.Local); err != nil {
			return "", err
		}
	}
	d.l.Info("initialized working copy", zap.String("path", root), zap.Bool("annex", d.annex))
	return root, nil
}

// ignore appends a folder to the .gitignore of a working copy, once
func (d *Datalink) ignore(root, rel string) error {
	pth := filepath.Join(root, gitIgnore)
	line := "/" + strings.TrimSuffix(rel, "/") + "/"

	current, err := afero.ReadFile(d.fs, pth)
	if err != nil && !os.IsNotExist(err) {
		return status.ErrInit.Wrap(err)
	}
	for _, l := range strings.Split(string(current), "\n") {
		if strings.TrimSpace(l) == line {
			return nil
		}
	}

	var buf bytes.Buffer
	buf.Write(current)
	if len(current) > 0 && !bytes.HasSuffix(current, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(line + "\n")
	if err := afero.WriteFile(d.fs, pth, buf.Bytes(), 0644); err != nil {
		return status.ErrInit.Wrap(err)
	}
	return nil
}
