package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mbd888/nftsentry/internal/facts"
)

const (
	metadataName = "metadata"

	// metadataTimeout bounds the whole metadata fetch. IPFS gateways are
	// slow; an unreachable document must not stall an analysis.
	metadataTimeout = 15 * time.Second

	defaultIPFSGateway = "https://ipfs.io/ipfs/"
)

// MetadataFetcher resolves an NFT's token URI into its metadata document.
// ipfs:// references are rewritten to an HTTP gateway; data: URIs are
// decoded inline without touching the network.
type MetadataFetcher struct {
	gateway string
	httpc   *http.Client
}

// MetadataOption configures the fetcher.
type MetadataOption func(*MetadataFetcher)

// WithIPFSGateway overrides the gateway ipfs:// references resolve through.
func WithIPFSGateway(gateway string) MetadataOption {
	return func(f *MetadataFetcher) {
		if gateway != "" {
			f.gateway = gateway
		}
	}
}

// WithMetadataTimeout overrides the fetch timeout.
func WithMetadataTimeout(d time.Duration) MetadataOption {
	return func(f *MetadataFetcher) { f.httpc = newHTTPClient(d) }
}

// NewMetadataFetcher creates a fetcher using the default public gateway.
func NewMetadataFetcher(opts ...MetadataOption) *MetadataFetcher {
	f := &MetadataFetcher{
		gateway: defaultIPFSGateway,
		httpc:   newHTTPClient(metadataTimeout),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the provider identifier used in fact attribution.
func (f *MetadataFetcher) Name() string { return metadataName }

// metadataDocument is the conventional ERC-721 metadata JSON shape.
type metadataDocument struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Attributes  []facts.Attribute `json:"attributes"`
}

// Fetch resolves ref and returns the parsed metadata document. An empty
// ref is an authoritative "no metadata" answer, reported as ErrNotFound.
func (f *MetadataFetcher) Fetch(ctx context.Context, ref string) (facts.Metadata, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return facts.Metadata{}, &RequestError{Provider: metadataName, Err: ErrNotFound}
	}

	scheme := StorageScheme(ref)

	var doc metadataDocument
	switch scheme {
	case "data":
		if err := decodeDataURI(ref, &doc); err != nil {
			return facts.Metadata{}, &RequestError{Provider: metadataName, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
		}
	case "ipfs", "https":
		if err := getJSON(ctx, f.httpc, metadataName, f.resolveURL(ref), nil, &doc); err != nil {
			return facts.Metadata{}, err
		}
	default:
		return facts.Metadata{}, &RequestError{Provider: metadataName, Err: fmt.Errorf("%w: unsupported URI scheme in %q", ErrMalformed, ref)}
	}

	return facts.Metadata{
		Provider:      metadataName,
		Name:          doc.Name,
		Description:   doc.Description,
		Image:         doc.Image,
		Attributes:    doc.Attributes,
		StorageScheme: scheme,
	}, nil
}

// resolveURL rewrites ipfs:// references to the configured gateway.
func (f *MetadataFetcher) resolveURL(ref string) string {
	if path, ok := strings.CutPrefix(ref, "ipfs://"); ok {
		path = strings.TrimPrefix(path, "ipfs/")
		return strings.TrimRight(f.gateway, "/") + "/" + path
	}
	return ref
}

// StorageScheme classifies where a metadata reference points. Decentralized
// storage is a durability signal the scoring rules care about.
func StorageScheme(ref string) string {
	switch {
	case strings.HasPrefix(ref, "ipfs://"):
		return "ipfs"
	case strings.HasPrefix(ref, "data:"):
		return "data"
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
		return "https"
	default:
		return ""
	}
}

// decodeDataURI parses an inline data: metadata document, base64 or plain.
func decodeDataURI(ref string, target any) error {
	_, rest, ok := strings.Cut(ref, ",")
	if !ok {
		return fmt.Errorf("data URI missing payload")
	}
	payload := []byte(rest)
	if strings.Contains(ref[:len(ref)-len(rest)], ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return fmt.Errorf("invalid base64 payload: %w", err)
		}
		payload = decoded
	}
	return json.Unmarshal(payload, target)
}
