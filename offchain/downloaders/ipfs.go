package downloaders

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	sharedhttp "github.com/eureka-network/eureka-sink/pkg/shared/http"
)

// IPFSResolver resolves ipfs://<cid>/<path> URIs through a configurable
// public gateway, over the same HTTP client machinery as HTTPSResolver.
type IPFSResolver struct {
	client     *http.Client
	gatewayURL string
}

func NewIPFSResolver(gatewayURL string) *IPFSResolver {
	return &IPFSResolver{
		client:     sharedhttp.NewClient(sharedhttp.IPFSResolverClientConfig()),
		gatewayURL: strings.TrimSuffix(gatewayURL, "/"),
	}
}

func (r *IPFSResolver) Download(ctx context.Context, uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "ipfs://")
	if rest == uri {
		return nil, fmt.Errorf("ipfs downloader: not an ipfs:// uri: %s", uri)
	}

	gatewayReq := fmt.Sprintf("%s/%s", r.gatewayURL, rest)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gatewayReq, nil)
	if err != nil {
		return nil, fmt.Errorf("ipfs downloader: build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipfs downloader: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ipfs downloader: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ipfs downloader: read body: %w", err)
	}
	return body, nil
}
