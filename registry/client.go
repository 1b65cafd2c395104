// Package registry looks up published package versions. Lookups never fail:
// any error degrades to a caller-supplied default.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mustng65/angular-starter-schematic/jsonedit"
)

// DefaultBaseURL is the public npm registry.
const DefaultBaseURL = "https://registry.npmjs.org"

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 10 * time.Second

// maxConcurrent bounds LookupAll fan-out.
const maxConcurrent = 4

// ErrNoMatchingVersion indicates that no published version has the requested major.
var ErrNoMatchingVersion = errors.New("no matching version")

// DefaultVersion is the version used when a lookup fails: "latest", except
// for major 7 whose last usable release was a beta.
func DefaultVersion(major string) string {
	if major == "7" {
		return "7.0.0-beta.24"
	}
	return "latest"
}

// Package is the outcome of a lookup.
type Package struct {
	Name     string
	Version  string
	Cached   bool // served from the cache
	Fallback bool // the default was used
}

// Request names one lookup for LookupAll.
type Request struct {
	Name     string
	Major    string
	Fallback string
}

// Client queries a package registry.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Cache      *Cache // optional
	log        *zap.Logger
}

// NewClient creates a client. Empty values take the package defaults.
func NewClient(baseURL string, timeout time.Duration, cache *Cache, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Timeout:    timeout,
		Cache:      cache,
		log:        log,
	}
}

// Lookup resolves the latest version of name, or the last published version
// of the given major. Any failure yields fallback, or DefaultVersion(major)
// when fallback is empty.
func (c *Client) Lookup(ctx context.Context, name, major, fallback string) Package {
	if fallback == "" {
		fallback = DefaultVersion(major)
	}

	if c.Cache != nil {
		if v, ok := c.Cache.Get(name, major); ok {
			return Package{Name: name, Version: v, Cached: true}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	doc, err := c.fetch(ctx, name)
	if err == nil {
		var version string
		if version, err = ResolveVersion(doc, major); err == nil {
			if c.Cache != nil {
				if err := c.Cache.Put(name, major, version); err != nil {
					c.log.Debug("cache write failed", zap.String("package", name), zap.Error(err))
				}
			}
			return Package{Name: name, Version: version}
		}
	}

	c.log.Debug("version lookup failed, using default",
		zap.String("package", name),
		zap.String("major", major),
		zap.String("default", fallback),
		zap.Error(err))
	return Package{Name: name, Version: fallback, Fallback: true}
}

// LookupAll runs lookups concurrently and returns results in request order.
func (c *Client) LookupAll(ctx context.Context, reqs []Request) []Package {
	out := make([]Package, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, r := range reqs {
		g.Go(func() error {
			out[i] = c.Lookup(gctx, r.Name, r.Major, r.Fallback)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// packageURL escapes the scope separator of scoped names.
func (c *Client) packageURL(name string) string {
	return c.BaseURL + "/" + strings.ReplaceAll(name, "/", "%2f")
}

func (c *Client) fetch(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.packageURL(name), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned %s for %s", resp.Status, name)
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decompressing response: %w", err)
		}
		defer zr.Close()
		body = zr
	}
	return io.ReadAll(body)
}

// ResolveVersion picks a version from a registry document: the "latest"
// dist-tag when major is empty, otherwise the last listed version whose
// major component equals major.
func ResolveVersion(doc []byte, major string) (string, error) {
	root, err := jsonedit.ParseObject(doc)
	if err != nil {
		return "", fmt.Errorf("parsing registry document: %w", err)
	}

	if major == "" {
		if latest := root.Find("dist-tags", "latest"); latest != nil && latest.Kind == jsonedit.KindString {
			return latest.Str, nil
		}
		return "", fmt.Errorf("no latest tag: %w", ErrNoMatchingVersion)
	}

	versions := root.Find("versions")
	if versions == nil || versions.Kind != jsonedit.KindObject {
		return "", fmt.Errorf("no versions listed: %w", ErrNoMatchingVersion)
	}
	keys := versions.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		if keys[i] == major || strings.HasPrefix(keys[i], major+".") {
			return keys[i], nil
		}
	}
	return "", fmt.Errorf("major %s: %w", major, ErrNoMatchingVersion)
}
