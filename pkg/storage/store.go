// Copyright © 2018 One Concern

package storage

import (
	"context"
	"io"
	"io/ioutil"
)

// Write modes for Put
const (
	OverWrite   = false
	NoOverWrite = true
)

// Store implementations know how to write entries to a K/V model.
//
// Typically this is something file system-like.
// Implementations of this interface are assumed to be fairly simple.
type Store interface {
	String() string
	Has(context.Context, string) (bool, error)
	Get(context.Context, string) (io.ReadCloser, error)
	Put(context.Context, string, io.Reader, bool) error
	Delete(context.Context, string) error
	Keys(context.Context) ([]string, error)
	Clear(context.Context) error
}

// ReadAll retrieves the full content of a key
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rdr, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	return ioutil.ReadAll(rdr)
}

// PipeIO copies a reader to a writer with a fixed-size buffer
func PipeIO(writer io.Writer, reader io.Reader) (n int64, err error) {
	buf := make([]byte, 1024*1024)
	return io.CopyBuffer(writer, reader, buf)
}
