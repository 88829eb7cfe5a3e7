// Package cmdlog keeps track of the mutating commands in flight.
//
// An entry is written before a command starts and removed when it completes.
// An entry left behind tells that a command died midway: when it recorded
// the id of a data set created in the catalog, the working copy can be recovered.
package cmdlog

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/oneconcern/datalink/pkg/cmdlog/status"
	"github.com/oneconcern/datalink/pkg/storage"
)

const entryExt = ".yaml"

// Entry of the command log
type Entry struct {
	Token     string    `json:"token" yaml:"token"`
	Command   string    `json:"command" yaml:"command"`
	Path      string    `json:"path" yaml:"path"`
	Args      []string  `json:"args,omitempty" yaml:"args,omitempty"`
	Started   time.Time `json:"started" yaml:"started"`
	DataSetID string    `json:"data_set_id,omitempty" yaml:"data_set_id,omitempty"`
	_         struct{}
}

// Log of the commands in flight
type Log struct {
	store storage.Store
	now   func() time.Time
	l     *zap.Logger
}

// Option for the command log
type Option func(*Log)

// Logger sets a logger for this log
func Logger(l *zap.Logger) Option {
	return func(c *Log) {
		if l != nil {
			c.l = l
		}
	}
}

// New command log on some store
func New(store storage.Store, opts ...Option) *Log {
	c := &Log{
		store: store,
		now:   time.Now,
		l:     zap.NewNop(),
	}
	for _, apply := range opts {
		apply(c)
	}
	return c
}

// Start records a command about to run on the working copy at path
func (c *Log) Start(ctx context.Context, command, path string, args ...string) (*Entry, error) {
	started := c.now().UTC()
	k, err := ksuid.NewRandomWithTime(started)
	if err != nil {
		return nil, status.ErrKSUID.Wrap(err)
	}
	e := &Entry{
		Token:   k.String(),
		Command: command,
		Path:    filepath.Clean(path),
		Args:    args,
		Started: started,
	}
	if err := c.put(ctx, e, storage.NoOverWrite); err != nil {
		return nil, err
	}
	c.l.Debug("command started", zap.String("token", e.Token), zap.String("command", command), zap.String("path", e.Path))
	return e, nil
}

// Record the id of a data set created by the command
func (c *Log) Record(ctx context.Context, e *Entry, dataSetID string) error {
	e.DataSetID = dataSetID
	return c.put(ctx, e, storage.OverWrite)
}

// Done removes the entry of a completed command
func (c *Log) Done(ctx context.Context, e *Entry) error {
	if e == nil {
		return nil
	}
	if err := c.store.Delete(ctx, e.Token+entryExt); err != nil {
		return status.ErrCloseEntry.WrapWithLog(c.l, err, zap.String("token", e.Token))
	}
	c.l.Debug("command done", zap.String("token", e.Token), zap.String("command", e.Command))
	return nil
}

// Pending entries for the working copy at path, oldest first. An empty path lists all entries.
func (c *Log) Pending(ctx context.Context, path string) ([]Entry, error) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return nil, status.ErrReadEntry.Wrap(err)
	}
	sort.Strings(keys)

	var entries []Entry
	for _, key := range keys {
		if !strings.HasSuffix(key, entryExt) {
			continue
		}
		b, err := storage.ReadAll(ctx, c.store, key)
		if err != nil {
			return nil, status.ErrReadEntry.WrapWithLog(c.l, err, zap.String("key", key))
		}
		var e Entry
		if err := yaml.Unmarshal(b, &e); err != nil {
			return nil, status.ErrReadEntry.WrapWithLog(c.l, err, zap.String("key", key))
		}
		if path == "" || e.Path == filepath.Clean(path) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Check fails when a command on the working copy at path did not complete
func (c *Log) Check(ctx context.Context, path string) error {
	pending, err := c.Pending(ctx, path)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		e := pending[0]
		return status.ErrUnfinished.WrapMessage("%s started at %s on %s", e.Command, e.Started.Format(time.RFC3339), e.Path)
	}
	return nil
}

func (c *Log) put(ctx context.Context, e *Entry, exclusive bool) error {
	b, err := yaml.Marshal(e)
	if err != nil {
		return status.ErrAddEntry.Wrap(err)
	}
	if err := c.store.Put(ctx, e.Token+entryExt, bytes.NewReader(b), exclusive); err != nil {
		return status.ErrAddEntry.WrapWithLog(c.l, err, zap.String("token", e.Token))
	}
	return nil
}
