// Copyright © 2018 One Concern

// Package transfer moves the content of content copies around: whole working copies
// with rsync, single files through the catalog.
package transfer

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/transfer/status"
)

// Source of a copy
type Source struct {
	Host string
	User string // ssh user, for remote hosts
	Path string
}

// Remote tells if the source must be reached over ssh from localHost
func (s Source) Remote(localHost string) bool {
	return s.Host != "" && s.Host != localHost
}

func (s Source) arg(localHost string) string {
	if !s.Remote(localHost) {
		return filepath.Clean(s.Path)
	}
	host := s.Host
	if s.User != "" {
		host = s.User + "@" + host
	}
	return host + ":" + filepath.Clean(s.Path)
}

// Copier copies a working copy into a parent folder, and returns the path of the copy
type Copier interface {
	Copy(ctx context.Context, src Source, destParent string) (string, error)
}

// Rsync copies with the rsync binary, over ssh for remote hosts
type Rsync struct {
	bin       string
	localHost string
	l         *zap.Logger
}

// RsyncOption for the rsync copier
type RsyncOption func(*Rsync)

// RsyncBinary sets the rsync executable
func RsyncBinary(bin string) RsyncOption {
	return func(r *Rsync) {
		if bin != "" {
			r.bin = bin
		}
	}
}

// RsyncLogger sets a logger
func RsyncLogger(l *zap.Logger) RsyncOption {
	return func(r *Rsync) {
		if l != nil {
			r.l = l
		}
	}
}

// NewRsync builds a copier running on localHost
func NewRsync(localHost string, opts ...RsyncOption) *Rsync {
	r := &Rsync{
		bin:       "rsync",
		localHost: localHost,
		l:         zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Copy the source folder under destParent. The copy keeps the base name of the source.
func (r *Rsync) Copy(ctx context.Context, src Source, destParent string) (string, error) {
	dest := filepath.Join(destParent, filepath.Base(filepath.Clean(src.Path)))
	if entries, err := os.ReadDir(dest); err == nil && len(entries) > 0 {
		return "", status.ErrDestinationExists.WrapMessage("%s", dest)
	}
	if err := os.MkdirAll(destParent, 0755); err != nil {
		return "", status.ErrCopy.Wrap(err)
	}

	args := []string{"--archive", "--partial", src.arg(r.localHost), destParent + string(filepath.Separator)}
	r.l.Info("copying content", zap.String("source", src.arg(r.localHost)), zap.String("destination", dest))

	cmd := exec.CommandContext(ctx, r.bin, args...) // #nosec
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", status.ErrCopy.WrapMessage("%s %s: %v: %s", r.bin, strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return dest, nil
}
