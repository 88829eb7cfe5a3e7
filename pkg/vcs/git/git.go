// Copyright © 2018 One Concern

// Package git implements the vcs facade on top of git and git-annex.
//
// Reads go through go-git. Writes and annex queries shell out to the git binary,
// since go-git knows nothing about git-annex.
package git

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/errors"
	"github.com/oneconcern/datalink/pkg/vcs"
)

const (
	shortHashLen = 7

	// DefaultAnnexBackend is the backend git-annex uses when none is configured
	DefaultAnnexBackend = "SHA256E"
)

var (
	// ErrCommand indicates a git command exiting with an error
	ErrCommand = errors.NewKind(errors.KindSubprocess, "git command failed")

	// ErrNotRepository indicates a path outside of any git working copy
	ErrNotRepository = errors.NewKind(errors.KindInvalidRepository, "not a git repository")

	// ErrNoCommit indicates a working copy without any commit yet
	ErrNoCommit = errors.NewKind(errors.KindInvalidRepository, "no commit yet")
)

var _ vcs.Facade = &Repo{}

// Repo is a git working copy
type Repo struct {
	path string
	bin  string
	env  []string
	l    *zap.Logger
}

// Option for a git working copy
type Option func(*Repo)

// WithLogger sets a logger for git commands
func WithLogger(l *zap.Logger) Option {
	return func(r *Repo) {
		if l != nil {
			r.l = l
		}
	}
}

// WithEnv adds environment variables to git commands
func WithEnv(env ...string) Option {
	return func(r *Repo) {
		r.env = append(r.env, env...)
	}
}

// WithBinary sets the git executable
func WithBinary(bin string) Option {
	return func(r *Repo) {
		if bin != "" {
			r.bin = bin
		}
	}
}

// New working copy at path, or within path
func New(path string, opts ...Option) *Repo {
	r := &Repo{
		path: path,
		bin:  "git",
		l:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(r)
	}
	return r
}

// Path the facade operates on
func (r *Repo) Path() string {
	return r.path
}

// Init a working copy. With annex, git-annex is initialized too.
func (r *Repo) Init(ctx context.Context, path, description string, annex bool) error {
	if path != "" {
		r.path = path
	}
	if err := os.MkdirAll(r.path, 0755); err != nil {
		return ErrCommand.Wrap(err)
	}
	if _, err := r.run(ctx, "init"); err != nil {
		return err
	}
	if !annex {
		return nil
	}
	args := []string{"annex", "init"}
	if description != "" {
		args = append(args, description)
	}
	_, err := r.run(ctx, args...)
	return err
}

// Status of the working copy, in porcelain format
func (r *Repo) Status(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// Add changes to the index. Untracked files are only added with all.
//
// Without all, only tracked files are staged: annexed files go through the smudge filter of git add.
func (r *Repo) Add(ctx context.Context, all bool) error {
	if !all {
		_, err := r.run(ctx, "add", "-u")
		return err
	}
	if r.hasAnnex() {
		if _, err := r.run(ctx, "annex", "add", "."); err != nil {
			return err
		}
	}
	_, err := r.run(ctx, "add", "-A")
	return err
}

// Commit the index
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := r.run(ctx, "commit", "-m", message)
	return err
}

// Checkout a ref
func (r *Repo) Checkout(ctx context.Context, ref string) error {
	_, err := r.run(ctx, "checkout", ref)
	return err
}

// ListTrackedFiles in the index, relative to the top level folder
func (r *Repo) ListTrackedFiles(_ context.Context) ([]string, error) {
	repo, err := r.open()
	if err != nil {
		return nil, err
	}
	idx, err := repo.Storer.Index()
	if err != nil {
		return nil, ErrCommand.Wrap(err)
	}
	files := make([]string, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		files = append(files, e.Name)
	}
	return files, nil
}

// TopLevelPath of the working copy
func (r *Repo) TopLevelPath(_ context.Context) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", ErrNotRepository.Wrap(err)
	}
	return wt.Filesystem.Root(), nil
}

// CommitHash of HEAD, in short form
func (r *Repo) CommitHash(_ context.Context) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return "", ErrNoCommit.WrapMessage("%s", r.path)
		}
		return "", ErrCommand.Wrap(err)
	}
	return head.Hash().String()[:shortHashLen], nil
}

// AnnexBackend configured for new files.
//
// The .gitattributes rule wins over the git configuration.
func (r *Repo) AnnexBackend(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "check-attr", "annex.backend", "--", "datalink")
	if err != nil {
		return "", err
	}
	if parts := strings.Split(strings.TrimSpace(out), ": "); len(parts) == 3 {
		if v := parts[2]; v != "unspecified" && v != "unset" && v != "" {
			return v, nil
		}
	}
	// git config exits with 1 when the key is unset
	if out, err := r.run(ctx, "config", "--get", "annex.backend"); err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out), nil
	}
	return DefaultAnnexBackend, nil
}

// AnnexInfo tells how git-annex stores a file. Files outside of the annex are reported as untracked.
func (r *Repo) AnnexInfo(ctx context.Context, path string) (vcs.AnnexFile, error) {
	info := vcs.AnnexFile{Path: path}
	if !r.hasAnnex() {
		return info, nil
	}
	out, err := r.run(ctx, "annex", "lookupkey", "--", path)
	if err != nil || strings.TrimSpace(out) == "" {
		// lookupkey exits with 1 for files not in the annex
		return info, nil
	}
	info.Tracked = true
	info.Key = strings.TrimSpace(out)
	info.Backend, info.Size = splitKey(info.Key)

	out, err = r.run(ctx, "annex", "find", "--", path)
	if err != nil {
		return info, err
	}
	info.Present = strings.TrimSpace(out) != ""
	return info, nil
}

func splitKey(key string) (string, int64) {
	sep := strings.Index(key, "--")
	if sep < 0 {
		return "", 0
	}
	fields := strings.Split(key[:sep], "-")
	var size int64
	for _, f := range fields[1:] {
		if strings.HasPrefix(f, "s") {
			size, _ = strconv.ParseInt(f[1:], 10, 64)
		}
	}
	return fields[0], size
}

func (r *Repo) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(r.path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, ErrNotRepository.WrapMessage("%s: %v", r.path, err)
	}
	return repo, nil
}

func (r *Repo) hasAnnex() bool {
	top, err := r.TopLevelPath(context.Background())
	if err != nil {
		return false
	}
	fi, err := os.Stat(filepath.Join(top, ".git", "annex"))
	return err == nil && fi.IsDir()
}

// run a git command in the working copy. Failures carry the output of the command.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.bin, append([]string{"-C", r.path}, args...)...) // #nosec
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.l.Debug("git", zap.Strings("args", args), zap.String("path", r.path))
	if err := cmd.Run(); err != nil {
		return stdout.String(), ErrCommand.WrapMessage("git %s: %v: %s",
			strings.Join(args, " "), err, strings.TrimSpace(stderr.String()+stdout.String()))
	}
	return stdout.String(), nil
}

func lines(out string) []string {
	var res []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			res = append(res, line)
		}
	}
	return res
}
