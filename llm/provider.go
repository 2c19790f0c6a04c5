package llm

import (
	"context"

	"github.com/BaSui01/queryflow/types"
)

// StreamChunk is one item of a provider's response stream: either a message
// fragment or a terminal error. After a chunk with a non-nil Err the
// channel is closed.
type StreamChunk struct {
	Message types.Message
	Err     error
}

// Provider is the boundary contract for the underlying SDK or subprocess
// call. Stream returns a lazy, finite, non-restartable sequence of message
// fragments; it may fail up front (connection or spawn error) via the
// returned error, or mid-stream via a terminal chunk. Implementations must
// be safely invocable multiple times with the same arguments and must
// never swallow errors.
type Provider interface {
	Name() string
	Stream(ctx context.Context, prompt string, opts *types.QueryOptions) (<-chan StreamChunk, error)
}

// Installer is the remediation hook invoked when the external binary is
// classified as missing. It is called at most once per query; when it
// reports Installed, the pipeline makes a single fresh attempt outside the
// normal retry budget.
type Installer interface {
	Install(ctx context.Context) (types.InstallResult, error)
}

// InstallerFunc adapts a function to the Installer interface.
type InstallerFunc func(ctx context.Context) (types.InstallResult, error)

// Install implements Installer.
func (f InstallerFunc) Install(ctx context.Context) (types.InstallResult, error) {
	return f(ctx)
}
