package interfaces

import "context"

// FetchedMedia is the decoded source audio for one identifier, shared by
// every variant pipeline of that identifier.
type FetchedMedia struct {
	Identifier string
	Title      string
	Path       string
	Format     string
}

// TransformedMedia is the output of one effect chain applied to a FetchedMedia.
type TransformedMedia struct {
	Identifier string
	Variant    string
	Title      string
	Path       string
	Format     string
}

// Fetcher downloads and decodes the source media for an identifier. A fetch
// may take seconds to minutes; implementations must honor ctx cancellation.
// The orchestrator calls this at most once per identifier and never retries.
type Fetcher interface {
	Fetch(ctx context.Context, identifier string) (*FetchedMedia, error)
}

// Transformer applies the effect chain named by variant.
type Transformer interface {
	Apply(ctx context.Context, media *FetchedMedia, variant string) (*TransformedMedia, error)
}

// Publisher uploads a transformed artifact and returns a client-resolvable
// reference to it.
type Publisher interface {
	Publish(ctx context.Context, media *TransformedMedia) (string, error)
}
