package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/model"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
)

// maxResponseBytes caps what an engine or page fetch may return.
const maxResponseBytes = 16 << 20

// HTTPEngine queries an engine exposed as an HTTP API, WAVE style: a GET
// request carrying the page address in the url parameter and, when
// configured, the API key in the key parameter.
type HTTPEngine struct {
	Endpoint string
	Key      string
	Shape    model.Shape
	Client   *http.Client
}

var _ ports.TestEngine = (*HTTPEngine)(nil)

// Run implements ports.TestEngine.
func (e *HTTPEngine) Run(ctx context.Context, category string, page ports.Page) (model.RawResult, error) {
	target := page.FinalURL
	if target == "" {
		target = page.URL
	}

	endpoint, err := e.requestURL(target)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", category, err)
	}
	req.Header.Set("Accept", "application/json")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", category, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("engine API returned %s", resp.Status)
	}
	return Decode(e.Shape, body)
}

func (e *HTTPEngine) requestURL(target string) (string, error) {
	templated := strings.Contains(e.Endpoint, URLPlaceholder)
	endpoint := strings.ReplaceAll(e.Endpoint, URLPlaceholder, url.QueryEscape(target))

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid engine endpoint %q: %w", e.Endpoint, err)
	}
	q := u.Query()
	if !templated {
		q.Set("url", target)
	}
	if e.Key != "" {
		q.Set("key", e.Key)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
