// Copyright © 2018 One Concern

// Package local implements a catalog embedded in a badger database.
//
// It serves offline work and tests: content copies are read straight from
// the local file system.
package local

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog"
	"github.com/oneconcern/datalink/pkg/catalog/status"
	"github.com/oneconcern/datalink/pkg/model"
)

var (
	dataSetPref = []byte("ds:")
	dmsPref     = []byte("dms:")
	seqKey      = []byte("seq:permid")
)

var _ catalog.Client = &Catalog{}

// Catalog stored in badger
type Catalog struct {
	dir      string
	inMemory bool
	fs       afero.Fs
	l        *zap.Logger
	now      func() time.Time

	db    *badger.DB
	close sync.Once
}

// Option for the local catalog
type Option func(*Catalog)

// InMemory keeps the catalog in memory only
func InMemory() Option {
	return func(c *Catalog) {
		c.inMemory = true
	}
}

// WithFs sets the file system content copies are read from
func WithFs(fs afero.Fs) Option {
	return func(c *Catalog) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// WithLogger sets a logger for the catalog and its database
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.l = l
		}
	}
}

// New opens the catalog stored in dir
func New(dir string, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		dir: dir,
		fs:  afero.NewOsFs(),
		l:   zap.NewNop(),
		now: time.Now,
	}
	for _, apply := range opts {
		apply(c)
	}

	var bopts badger.Options
	if c.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, status.ErrTransport.Wrap(err)
		}
		bopts = badger.DefaultOptions(dir)
	}
	db, err := badger.Open(bopts.WithLogger(badgerLogger{c.l.Sugar()}))
	if err != nil {
		return nil, status.ErrTransport.WrapMessage("opening catalog at %q: %v", dir, err)
	}
	c.db = db
	return c, nil
}

// Close the catalog
func (c *Catalog) Close() error {
	var err error
	c.close.Do(func() {
		if c.db != nil {
			err = c.db.Close()
		}
	})
	return err
}

func (c *Catalog) String() string {
	if c.inMemory {
		return "local:memory"
	}
	return "local://" + c.dir
}

// CreatePermID generates a new permanent id, in the form <timestamp>-<sequence>
func (c *Catalog) CreatePermID(ctx context.Context) (string, error) {
	var seq uint64
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(seqKey)
		switch err {
		case nil:
			v, e := item.ValueCopy(nil)
			if e != nil {
				return e
			}
			seq = binary.BigEndian.Uint64(v)
		case badger.ErrKeyNotFound:
		default:
			return err
		}
		seq++
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, seq)
		return txn.Set(seqKey, buf)
	})
	if err != nil {
		return "", status.ErrTransport.Wrap(err)
	}
	return fmt.Sprintf("%s-%d", c.now().UTC().Format("20060102150405000"), seq), nil
}

// GetOrCreateExternalDMS registers a location, unless it is already known
func (c *Catalog) GetOrCreateExternalDMS(ctx context.Context, dms model.ExternalDMS) (model.ExternalDMS, error) {
	var res model.ExternalDMS
	err := c.db.Update(func(txn *badger.Txn) error {
		found, err := getJSON(txn, key(dmsPref, dms.Code), &res)
		if err != nil || found {
			return err
		}
		res = dms
		c.l.Info("registering external data management system", zap.String("code", dms.Code), zap.String("address", dms.Address))
		return setJSON(txn, key(dmsPref, dms.Code), dms)
	})
	if err != nil {
		return model.ExternalDMS{}, status.ErrTransport.Wrap(err)
	}
	return res, nil
}

// CreateDataSet creates a linked data set
func (c *Catalog) CreateDataSet(ctx context.Context, creation model.DataSetCreation) (string, error) {
	if err := creation.Validate(); err != nil {
		return "", err
	}
	code := creation.Code
	if code == "" {
		var err error
		if code, err = c.CreatePermID(ctx); err != nil {
			return "", err
		}
	}

	ds := model.DataSet{
		ID:            code,
		Type:          creation.Type,
		Kind:          model.KindLink,
		Properties:    creation.Properties,
		Parents:       creation.Parents,
		SampleID:      creation.SampleID,
		ExperimentID:  creation.ExperimentID,
		ContentCopies: creation.ContentCopies,
		Files:         creation.Files,
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		for _, parent := range ds.Parents {
			if found, err := getJSON(txn, key(dataSetPref, parent), &model.DataSet{}); err != nil || !found {
				if err != nil {
					return err
				}
				return status.ErrDataSetNotFound.WrapMessage("parent %s", parent)
			}
		}
		for i, cc := range ds.ContentCopies {
			if err := checkDMS(txn, cc); err != nil {
				return err
			}
			for _, other := range ds.ContentCopies[:i] {
				if other.SameLocation(cc) {
					return status.ErrContentCopyExists.WrapMessage("%s:%s", cc.ExternalDMSID, cc.Path)
				}
			}
		}
		return setJSON(txn, key(dataSetPref, code), ds)
	})
	if err != nil {
		return "", rewriteError(err)
	}
	c.l.Info("created data set", zap.String("id", code), zap.Strings("parents", ds.Parents))
	return code, nil
}

// GetDataSet by its id
func (c *Catalog) GetDataSet(ctx context.Context, id string) (model.DataSet, error) {
	var ds model.DataSet
	err := c.db.View(func(txn *badger.Txn) error {
		return getDataSet(txn, id, &ds)
	})
	if err != nil {
		return model.DataSet{}, rewriteError(err)
	}
	return ds, nil
}

// AddContentCopy registers a new location for a data set
func (c *Catalog) AddContentCopy(ctx context.Context, id string, cc model.ContentCopy) error {
	return c.updateDataSet(id, func(txn *badger.Txn, ds *model.DataSet) error {
		if _, found := ds.FindContentCopy(cc); found {
			return status.ErrContentCopyExists.WrapMessage("%s:%s", cc.ExternalDMSID, cc.Path)
		}
		if err := checkDMS(txn, cc); err != nil {
			return err
		}
		ds.ContentCopies = append(ds.ContentCopies, cc)
		return nil
	})
}

// DeleteContentCopy removes the content copy at the same location as cc
func (c *Catalog) DeleteContentCopy(ctx context.Context, id string, cc model.ContentCopy) error {
	return c.updateDataSet(id, func(_ *badger.Txn, ds *model.DataSet) error {
		if _, found := ds.FindContentCopy(cc); !found {
			return status.ErrContentCopyNotFound.WrapMessage("%s:%s", cc.ExternalDMSID, cc.Path)
		}
		ds.ContentCopies = model.ContentCopies(ds.ContentCopies).Without(cc)
		return nil
	})
}

// SearchFiles lists the manifest of a data set
func (c *Catalog) SearchFiles(ctx context.Context, id string) (model.Manifest, error) {
	ds, err := c.GetDataSet(ctx, id)
	if err != nil {
		return nil, err
	}
	return ds.Files, nil
}

// DownloadFile reads a file from the content copy folder
func (c *Catalog) DownloadFile(ctx context.Context, req model.DownloadRequest) (io.ReadCloser, error) {
	ds, err := c.GetDataSet(ctx, req.DataSetID)
	if err != nil {
		return nil, err
	}
	if _, ok := ds.Files.Lookup(req.Path); !ok {
		return nil, status.ErrFileNotFound.WrapMessage("%s in %s", req.Path, req.DataSetID)
	}
	if _, found := ds.FindContentCopy(req.ContentCopy); !found {
		return nil, status.ErrContentCopyNotFound.WrapMessage("%s:%s", req.ContentCopy.ExternalDMSID, req.ContentCopy.Path)
	}
	f, err := c.fs.Open(filepath.Join(req.ContentCopy.Path, filepath.FromSlash(req.Path)))
	if err != nil {
		return nil, status.ErrTransport.Wrap(err)
	}
	if req.Offset > 0 {
		if _, err := f.Seek(req.Offset, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, status.ErrTransport.Wrap(err)
		}
	}
	return f, nil
}

func (c *Catalog) updateDataSet(id string, apply func(*badger.Txn, *model.DataSet) error) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		var ds model.DataSet
		if err := getDataSet(txn, id, &ds); err != nil {
			return err
		}
		if err := apply(txn, &ds); err != nil {
			return err
		}
		return setJSON(txn, key(dataSetPref, id), ds)
	})
	return rewriteError(err)
}

func getDataSet(txn *badger.Txn, id string, ds *model.DataSet) error {
	found, err := getJSON(txn, key(dataSetPref, id), ds)
	if err != nil {
		return err
	}
	if !found {
		return status.ErrDataSetNotFound.WrapMessage("%s", id)
	}
	return nil
}

func checkDMS(txn *badger.Txn, cc model.ContentCopy) error {
	found, err := getJSON(txn, key(dmsPref, cc.ExternalDMSID), &model.ExternalDMS{})
	if err != nil {
		return err
	}
	if !found {
		return status.ErrExternalDMSNotFound.WrapMessage("%s", cc.ExternalDMSID)
	}
	return nil
}
