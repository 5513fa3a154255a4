// Package downloaders holds the built-in LinkResolver implementations:
// https and ipfs.
package downloaders

import (
	"context"
	"fmt"
	"io"
	"net/http"

	sharedhttp "github.com/eureka-network/eureka-sink/pkg/shared/http"
)

// HTTPSResolver fetches a URI's body over HTTPS (or HTTP), returning the
// raw bytes verbatim — never through a string intermediate, which would
// corrupt non-UTF-8 content.
type HTTPSResolver struct {
	client *http.Client
}

func NewHTTPSResolver() *HTTPSResolver {
	return &HTTPSResolver{client: sharedhttp.NewClient(sharedhttp.HTTPSResolverClientConfig())}
}

func (r *HTTPSResolver) Download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("https downloader: build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("https downloader: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("https downloader: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("https downloader: read body: %w", err)
	}
	return body, nil
}
