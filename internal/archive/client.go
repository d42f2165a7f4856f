package archive

import (
	"context"
	"errors"
)

// Client is the minimal contract the archiver needs from the
// underlying graph store.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options configures a graph client implementation.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// ErrMissingURI indicates the archive URI is not provided.
var ErrMissingURI = errors.New("archive URI is required")
