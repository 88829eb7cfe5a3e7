package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/oneconcern/datalink/pkg/errors"
	"github.com/oneconcern/datalink/pkg/transfer"
	"github.com/oneconcern/datalink/pkg/vcs"
)

var errFakeVCS = errors.NewKind(errors.KindSubprocess, "fake vcs")

type fakeCommit struct {
	hash  string
	files map[string]string
}

type fakeRepo struct {
	tracked map[string]bool
	commits []fakeCommit
	head    int
}

func (r *fakeRepo) clone() *fakeRepo {
	c := &fakeRepo{tracked: make(map[string]bool, len(r.tracked)), head: r.head}
	for k := range r.tracked {
		c.tracked[k] = true
	}
	c.commits = append(c.commits, r.commits...)
	return c
}

func (r *fakeRepo) headFiles() map[string]string {
	if r.head < 0 {
		return map[string]string{}
	}
	return r.commits[r.head].files
}

// fakeGit keeps git-like repositories on an in-memory file system
type fakeGit struct {
	mu    sync.Mutex
	fs    afero.Fs
	repos map[string]*fakeRepo
	seq   int
}

func newFakeGit(fs afero.Fs) *fakeGit {
	return &fakeGit{fs: fs, repos: make(map[string]*fakeRepo)}
}

func (g *fakeGit) factory() VCSFactory {
	return func(path string) vcs.Facade {
		return &fakeFacade{git: g, path: path}
	}
}

// worktree reads the files of a repository, skipping .git and nested repositories
func (g *fakeGit) worktree(root string) (map[string]string, error) {
	files := make(map[string]string)
	err := afero.Walk(g.fs, root, func(pth string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" || (pth != root && g.repos[pth] != nil) {
				return filepath.SkipDir
			}
			return nil
		}
		b, err := afero.ReadFile(g.fs, pth)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, pth)
		files[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	return files, err
}

type fakeFacade struct {
	git  *fakeGit
	path string
}

func (f *fakeFacade) repo() (string, *fakeRepo, error) {
	for dir := filepath.Clean(f.path); ; dir = filepath.Dir(dir) {
		if r, ok := f.git.repos[dir]; ok {
			return dir, r, nil
		}
		if dir == filepath.Dir(dir) {
			return "", nil, errFakeVCS.WrapMessage("%s: not a git repository", f.path)
		}
	}
}

func (f *fakeFacade) Init(_ context.Context, path, _ string, _ bool) error {
	f.git.mu.Lock()
	defer f.git.mu.Unlock()
	if path == "" {
		path = f.path
	}
	if err := f.git.fs.MkdirAll(filepath.Join(path, ".git"), 0755); err != nil {
		return err
	}
	f.git.repos[filepath.Clean(path)] = &fakeRepo{tracked: make(map[string]bool), head: -1}
	return nil
}

func (f *fakeFacade) Status(_ context.Context) ([]string, error) {
	f.git.mu.Lock()
	defer f.git.mu.Unlock()
	root, r, err := f.repo()
	if err != nil {
		return nil, err
	}
	work, err := f.git.worktree(root)
	if err != nil {
		return nil, err
	}
	head := r.headFiles()
	var lines []string
	for p, content := range work {
		committed, inHead := head[p]
		switch {
		case !r.tracked[p]:
			lines = append(lines, "?? "+p)
		case !inHead:
			lines = append(lines, "A  "+p)
		case committed != content:
			lines = append(lines, " M "+p)
		}
	}
	for p := range head {
		if _, ok := work[p]; !ok {
			lines = append(lines, " D "+p)
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func (f *fakeFacade) Add(_ context.Context, all bool) error {
	f.git.mu.Lock()
	defer f.git.mu.Unlock()
	root, r, err := f.repo()
	if err != nil {
		return err
	}
	work, err := f.git.worktree(root)
	if err != nil {
		return err
	}
	for p := range r.tracked {
		if _, ok := work[p]; !ok {
			delete(r.tracked, p)
		}
	}
	if all {
		for p := range work {
			r.tracked[p] = true
		}
	}
	return nil
}

func (f *fakeFacade) Commit(_ context.Context, message string) error {
	f.git.mu.Lock()
	defer f.git.mu.Unlock()
	root, r, err := f.repo()
	if err != nil {
		return err
	}
	if message == "" {
		return errFakeVCS.WrapMessage("empty commit message")
	}
	work, err := f.git.worktree(root)
	if err != nil {
		return err
	}
	snapshot := make(map[string]string, len(r.tracked))
	for p := range r.tracked {
		snapshot[p] = work[p]
	}
	f.git.seq++
	r.commits = append(r.commits, fakeCommit{hash: fmt.Sprintf("%07x", 0xabc0000+f.git.seq), files: snapshot})
	r.head = len(r.commits) - 1
	return nil
}

func (f *fakeFacade) Checkout(_ context.Context, ref string) error {
	f.git.mu.Lock()
	defer f.git.mu.Unlock()
	root, r, err := f.repo()
	if err != nil {
		return err
	}
	for i, c := range r.commits {
		if c.hash != ref {
			continue
		}
		head := r.headFiles()
		for p := range head {
			if _, ok := c.files[p]; !ok {
				_ = f.git.fs.Remove(filepath.Join(root, filepath.FromSlash(p)))
			}
		}
		// local changes to files the checkout does not touch are kept
		for p, content := range c.files {
			if committed, ok := head[p]; ok && committed == content {
				continue
			}
			if err := afero.WriteFile(f.git.fs, filepath.Join(root, filepath.FromSlash(p)), []byte(content), 0644); err != nil {
				return err
			}
		}
		r.head = i
		r.tracked = make(map[string]bool, len(c.files))
		for p := range c.files {
			r.tracked[p] = true
		}
		return nil
	}
	return errFakeVCS.WrapMessage("pathspec %q did not match", ref)
}

func (f *fakeFacade) ListTrackedFiles(_ context.Context) ([]string, error) {
	f.git.mu.Lock()
	defer f.git.mu.Unlock()
	_, r, err := f.repo()
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(r.tracked))
	for p := range r.tracked {
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

func (f *fakeFacade) TopLevelPath(_ context.Context) (string, error) {
	f.git.mu.Lock()
	defer f.git.mu.Unlock()
	root, _, err := f.repo()
	return root, err
}

func (f *fakeFacade) CommitHash(_ context.Context) (string, error) {
	f.git.mu.Lock()
	defer f.git.mu.Unlock()
	_, r, err := f.repo()
	if err != nil {
		return "", err
	}
	if r.head < 0 {
		return "", errFakeVCS.WrapMessage("no commit yet")
	}
	return r.commits[r.head].hash, nil
}

func (f *fakeFacade) AnnexBackend(_ context.Context) (string, error) {
	return "SHA256E", nil
}

func (f *fakeFacade) AnnexInfo(_ context.Context, path string) (vcs.AnnexFile, error) {
	return vcs.AnnexFile{Path: path}, nil
}

// fakeCopier copies working copies within the in-memory file system, git history included
type fakeCopier struct {
	git     *fakeGit
	sources []transfer.Source
}

func (c *fakeCopier) Copy(_ context.Context, src transfer.Source, destParent string) (string, error) {
	c.git.mu.Lock()
	defer c.git.mu.Unlock()
	c.sources = append(c.sources, src)

	srcRoot := filepath.Clean(src.Path)
	dest := filepath.Join(destParent, filepath.Base(srcRoot))
	if ok, _ := afero.DirExists(c.git.fs, dest); ok {
		return "", errFakeVCS.WrapMessage("%s exists", dest)
	}
	err := afero.Walk(c.git.fs, srcRoot, func(pth string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(srcRoot, pth)
		target := filepath.Join(dest, rel)
		if info.IsDir() {
			return c.git.fs.MkdirAll(target, 0755)
		}
		b, err := afero.ReadFile(c.git.fs, pth)
		if err != nil {
			return err
		}
		return afero.WriteFile(c.git.fs, target, b, info.Mode())
	})
	if err != nil {
		return "", err
	}
	r, ok := c.git.repos[srcRoot]
	if !ok {
		return "", errFakeVCS.WrapMessage("%s: not a git repository", srcRoot)
	}
	c.git.repos[dest] = r.clone()
	return dest, nil
}

func writeFiles(fs afero.Fs, root string, files map[string]string) error {
	for p, content := range files {
		if err := afero.WriteFile(fs, filepath.Join(root, filepath.FromSlash(p)), []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}
