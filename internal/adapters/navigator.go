package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexisbeaulieu97/autotest/internal/logger"
	"github.com/alexisbeaulieu97/autotest/internal/ports"
	autotesterrors "github.com/alexisbeaulieu97/autotest/pkg/errors"
)

const defaultMaxRedirects = 10

// NavigatorOptions configure an HTTPNavigator.
type NavigatorOptions struct {
	UserAgent    string
	MaxRedirects int
	// Prohibited lists host names a visit must never land on. A subdomain of
	// a listed name is prohibited too.
	Prohibited []string
	// Retries is how many times a rejected visit is attempted again.
	Retries int
	Client  *http.Client
	Logger  *logger.Logger
}

// HTTPNavigator visits pages with a plain HTTP GET and keeps the document
// for the probes and engines that read it.
type HTTPNavigator struct {
	opts   NavigatorOptions
	client *http.Client
}

var _ ports.Navigator = (*HTTPNavigator)(nil)

// NewHTTPNavigator creates a navigator.
func NewHTTPNavigator(opts NavigatorOptions) *HTTPNavigator {
	base := opts.Client
	if base == nil {
		base = &http.Client{}
	}
	client := *base
	client.CheckRedirect = opts.checkRedirect
	return &HTTPNavigator{opts: opts, client: &client}
}

// Visit implements ports.Navigator. Rejections that are retried are counted
// in the returned stats; the final failure is left to the caller to count.
func (n *HTTPNavigator) Visit(ctx context.Context, target string) (ports.Page, ports.VisitStats, error) {
	var stats ports.VisitStats

	if n.prohibited(target) {
		return ports.Page{}, stats, autotesterrors.NewVisitError(autotesterrors.VisitProhibited, target, nil)
	}

	for attempt := 0; ; attempt++ {
		page, err := n.fetch(ctx, target)
		if err == nil {
			return page, stats, nil
		}

		var visitErr *autotesterrors.VisitError
		retryable := errors.As(err, &visitErr) && visitErr.Kind == autotesterrors.VisitRejection
		if !retryable || attempt >= n.opts.Retries || ctx.Err() != nil {
			return ports.Page{}, stats, err
		}
		stats.Rejections++
		n.opts.Logger.WithFields(map[string]any{"url": target, "attempt": attempt + 1}).Debug("visit rejected, retrying")
	}
}

func (n *HTTPNavigator) fetch(ctx context.Context, target string) (ports.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return ports.Page{}, autotesterrors.NewVisitError(autotesterrors.VisitRejection, target, err)
	}
	if n.opts.UserAgent != "" {
		req.Header.Set("User-Agent", n.opts.UserAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return ports.Page{}, classify(ctx, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.Page{}, classify(ctx, target, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return ports.Page{}, autotesterrors.NewVisitError(autotesterrors.VisitRejection, target, fmt.Errorf("status %s", resp.Status))
	}

	return ports.Page{
		URL:      target,
		FinalURL: resp.Request.URL.String(),
		Status:   resp.StatusCode,
		Body:     body,
	}, nil
}

func classify(ctx context.Context, target string, err error) error {
	var visitErr *autotesterrors.VisitError
	if errors.As(err, &visitErr) {
		return visitErr
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return autotesterrors.NewVisitError(autotesterrors.VisitTimeout, target, err)
	}
	return autotesterrors.NewVisitError(autotesterrors.VisitRejection, target, err)
}

func (o NavigatorOptions) checkRedirect(req *http.Request, via []*http.Request) error {
	limit := o.MaxRedirects
	if limit <= 0 {
		limit = defaultMaxRedirects
	}
	if len(via) >= limit {
		return autotesterrors.NewVisitError(autotesterrors.VisitRejection, req.URL.String(), fmt.Errorf("stopped after %d redirects", limit))
	}
	if hostProhibited(o.Prohibited, req.URL.Hostname()) {
		return autotesterrors.NewVisitError(autotesterrors.VisitProhibited, req.URL.String(), errors.New("redirect to a prohibited host"))
	}
	return nil
}

func (n *HTTPNavigator) prohibited(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return hostProhibited(n.opts.Prohibited, u.Hostname())
}

func hostProhibited(list []string, host string) bool {
	host = strings.ToLower(host)
	for _, p := range list {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if host == p || strings.HasSuffix(host, "."+p) {
			return true
		}
	}
	return false
}
