// Package azure implements the backend on top of an Azure Data Lake Storage
// Gen2 filesystem.
package azure

import (
	"context"
	"net"
	"net/http"

	"github.com/mdarezzo/massundelete/internal/backend"
	"github.com/mdarezzo/massundelete/internal/debug"
	"github.com/mdarezzo/massundelete/internal/errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake/datalakeerror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake/filesystem"
)

// Backend restores soft-deleted paths in one filesystem (container) of a
// storage account with hierarchical namespace enabled. Listing goes through
// the SDK's filesystem client, the undelete calls through the raw pipeline
// (see undelete.go).
type Backend struct {
	cfg Config
	fs  *filesystem.Client
	pl  runtime.Pipeline
}

// make sure that *Backend implements backend.Backend
var _ backend.Backend = &Backend{}

// Open connects to the container from cfg. The config must have been
// validated before.
func Open(cfg Config) (*Backend, error) {
	debug.Log("open, config %#v", cfg)

	var client *filesystem.Client
	var auth policy.Policy
	var err error

	url := cfg.ContainerURL()
	opts := &filesystem.ClientOptions{}

	if cfg.AccountKey != "" {
		debug.Log(" - using account key")
		cred, err := azdatalake.NewSharedKeyCredential(cfg.AccountName(), cfg.AccountKey)
		if err != nil {
			return nil, errors.Wrap(err, "NewSharedKeyCredential")
		}

		client, err = filesystem.NewClientWithSharedKeyCredential(url, cred, opts)
		if err != nil {
			return nil, errors.Wrap(err, "NewClientWithSharedKeyCredential")
		}
		auth = &sharedKeyPolicy{accountName: cfg.AccountName(), accountKey: cfg.AccountKey}
	} else {
		var cred azcore.TokenCredential

		if cfg.ForceCliCredential {
			debug.Log(" - using AzureCLICredential")
			cred, err = azidentity.NewAzureCLICredential(nil)
			if err != nil {
				return nil, errors.Wrap(err, "NewAzureCLICredential")
			}
		} else {
			debug.Log(" - using DefaultAzureCredential")
			cred, err = azidentity.NewDefaultAzureCredential(nil)
			if err != nil {
				return nil, errors.Wrap(err, "NewDefaultAzureCredential")
			}
		}

		client, err = filesystem.NewClient(url, cred, opts)
		if err != nil {
			return nil, errors.Wrap(err, "NewClient")
		}
		auth = runtime.NewBearerTokenPolicy(cred, []string{"https://storage.azure.com/.default"}, nil)
	}

	// the engine schedules its own retries, azcore must not add another
	// layer of them underneath
	pl := runtime.NewPipeline("massundelete", "v1", runtime.PipelineOptions{
		PerRetry: []policy.Policy{auth},
	}, &policy.ClientOptions{
		Retry: policy.RetryOptions{MaxRetries: -1},
	})

	return &Backend{cfg: cfg, fs: client, pl: pl}, nil
}

// ListDeleted runs fn for each soft-deleted path in the container. When an
// error occurs (or fn returns an error), ListDeleted stops and returns it.
func (be *Backend) ListDeleted(ctx context.Context, fn func(backend.DeletedPath) error) error {
	maxResults := be.cfg.ListMaxItems

	opts := &filesystem.ListDeletedPathsOptions{
		MaxResults: &maxResults,
	}
	if be.cfg.Prefix != "" {
		opts.Prefix = &be.cfg.Prefix
	}
	lister := be.fs.NewListDeletedPathsPager(opts)

	for lister.More() {
		resp, err := lister.NextPage(ctx)
		if err != nil {
			return errors.Wrap(err, "ListDeletedPaths")
		}

		debug.Log("got %v deleted paths", len(resp.Segment.PathItems))

		for _, item := range resp.Segment.PathItems {
			if item == nil || item.Name == nil || item.DeletionID == nil {
				continue
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}

			err := fn(backend.DeletedPath{
				Path:       *item.Name,
				DeletionID: *item.DeletionID,
			})
			if err != nil {
				return err
			}
		}
	}

	return ctx.Err()
}

// IsAlreadyExists returns true if the service reports that the target path
// already exists, i.e. an earlier attempt already restored it.
func (be *Backend) IsAlreadyExists(err error) bool {
	if datalakeerror.HasCode(err, datalakeerror.PathAlreadyExists) {
		return true
	}

	// the undelete operation goes through the blob endpoint and may answer
	// with the blob flavor of the same condition
	var aerr *azcore.ResponseError
	if errors.As(err, &aerr) {
		return aerr.ErrorCode == "BlobAlreadyExists"
	}
	return false
}

// IsThrottled returns true for capacity signals from the service.
func (be *Backend) IsThrottled(err error) bool {
	if datalakeerror.HasCode(err, datalakeerror.ServerBusy) {
		return true
	}

	var aerr *azcore.ResponseError
	if errors.As(err, &aerr) {
		return aerr.StatusCode == http.StatusTooManyRequests || aerr.StatusCode == http.StatusServiceUnavailable
	}
	return false
}

// IsTransient returns true for server hiccups and network-level failures
// that a bounded retry can paper over.
func (be *Backend) IsTransient(err error) bool {
	if datalakeerror.HasCode(err, datalakeerror.InternalError, datalakeerror.OperationTimedOut) {
		return true
	}

	var aerr *azcore.ResponseError
	if errors.As(err, &aerr) {
		switch aerr.StatusCode {
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return true
		}
		return false
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return false
}
