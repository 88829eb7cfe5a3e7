// Copyright © 2018 One Concern

// Package catalog describes the metadata catalog holding linked data sets.
package catalog

import (
	"context"
	"io"

	"github.com/oneconcern/datalink/pkg/model"
)

// Client to a metadata catalog
type Client interface {
	// CreatePermID reserves a new permanent identifier
	CreatePermID(context.Context) (string, error)

	// GetOrCreateExternalDMS registers a location, unless it is already known
	GetOrCreateExternalDMS(context.Context, model.ExternalDMS) (model.ExternalDMS, error)

	// CreateDataSet creates a linked data set and returns its id
	CreateDataSet(context.Context, model.DataSetCreation) (string, error)

	GetDataSet(context.Context, string) (model.DataSet, error)
	AddContentCopy(context.Context, string, model.ContentCopy) error
	DeleteContentCopy(context.Context, string, model.ContentCopy) error

	// SearchFiles lists the manifest of a data set
	SearchFiles(context.Context, string) (model.Manifest, error)

	// DownloadFile streams one file of a content copy, starting at the request offset
	DownloadFile(context.Context, model.DownloadRequest) (io.ReadCloser, error)
}
