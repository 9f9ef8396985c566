package surface

import (
	"context"
	"errors"
)

var ErrSurfaceNotFound = errors.New("payment surface not found")

// Handle references one opened hosted payment page.
type Handle struct {
	ID  string
	URL string
}

// Surface is where the shopper completes payment. IsClosed must report false
// for a nil handle so that a surface that failed to open never reads as a
// shopper cancellation.
type Surface interface {
	Open(ctx context.Context, url string) (*Handle, error)
	IsClosed(ctx context.Context, h *Handle) bool
	Close(ctx context.Context, h *Handle) error
}

// Registry is a Surface whose closed state is reported from outside, by the
// storefront that displays the page.
type Registry interface {
	Surface
	Lookup(ctx context.Context, id string) (*Handle, error)
	MarkClosed(ctx context.Context, id string) error
}
