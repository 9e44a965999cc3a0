// SPDX-License-Identifier: MPL-2.0

// Package index fetches and resolves the remote Ren'Py release catalog.
//
// The catalog is the plain directory listing at https://www.renpy.org/dl/:
// an HTML page whose anchors name the released versions. The listing is
// cheap and changes often, so it is fetched at most once per Client and
// never persisted.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"renutil/internal/version"
)

const (
	// DefaultBaseURL is the canonical release listing location.
	DefaultBaseURL = "https://www.renpy.org/dl"

	// maxListingBytes bounds the HTML listing size (4 MB). The real page
	// is a few kilobytes; the bound guards against a misbehaving remote.
	maxListingBytes = 4 << 20
)

var (
	// ErrUnavailable indicates the release listing could not be fetched
	// or parsed. Fatal to any operation that needs version resolution.
	ErrUnavailable = errors.New("release index unavailable")

	// ErrVersionNotFound indicates no release matches the requested version.
	ErrVersionNotFound = errors.New("version not found")
)

type (
	// Release is one advertised Ren'Py release with the download locations
	// derived from it. Tag is the version string exactly as advertised by
	// the listing. Archive URLs embed the tag, not the canonical form,
	// because legacy releases were published under two-component names.
	Release struct {
		Version     version.Version
		Tag         string
		SDKURL      string
		RAPTURL     string
		ChecksumURL string
	}

	// Client fetches the release listing. The parsed result is cached for
	// the lifetime of the Client, which matches a single CLI invocation.
	Client struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string

		cached []Release
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Nightly reports whether the release is a pre-release or nightly build.
func (r Release) Nightly() bool { return r.Version.Nightly() }

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the listing base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(base, "/")
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// NewClient creates a Client with production defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "renutil/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Releases fetches and parses the release listing, newest first. Entries
// whose anchor text does not parse as a version are skipped, not fatal.
// The result is cached; subsequent calls return the same slice.
func (c *Client) Releases(ctx context.Context) ([]Release, error) {
	if c.cached != nil {
		return c.cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching listing: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: listing returned status %d", ErrUnavailable, resp.StatusCode)
	}

	tags, err := parseListing(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	releases := make([]Release, 0, len(tags))
	for _, tag := range tags {
		v, parseErr := version.Parse(tag)
		if parseErr != nil {
			// Listings carry plenty of non-version anchors ("updates/",
			// "Parent Directory"). Skip them.
			continue
		}
		releases = append(releases, c.release(v, strings.TrimSuffix(tag, "/")))
	}

	// Newest first, by version order rather than listing order.
	slices.SortStableFunc(releases, func(a, b Release) int {
		return version.Compare(b.Version, a.Version)
	})

	c.cached = releases
	return releases, nil
}

// Resolve turns a requested version string into a concrete release.
// The symbolic name "latest" resolves to the newest release, skipping
// nightlies and pre-releases unless includePre is set. Any other string
// must parse as a version and match an advertised release exactly.
func (c *Client) Resolve(ctx context.Context, requested string, includePre bool) (Release, error) {
	releases, err := c.Releases(ctx)
	if err != nil {
		return Release{}, err
	}

	if requested == "latest" {
		for _, r := range releases {
			if includePre || !r.Nightly() {
				return r, nil
			}
		}
		return Release{}, fmt.Errorf("%w: no release matches \"latest\"", ErrVersionNotFound)
	}

	want, err := version.Parse(requested)
	if err != nil {
		return Release{}, fmt.Errorf("%w: %w", ErrVersionNotFound, err)
	}
	for _, r := range releases {
		if version.Equal(r.Version, want) {
			return r, nil
		}
	}
	return Release{}, fmt.Errorf("%w: %s", ErrVersionNotFound, want)
}

// release derives the download locations for an advertised version tag.
func (c *Client) release(v version.Version, tag string) Release {
	dir := c.baseURL + "/" + tag
	return Release{
		Version:     v,
		Tag:         tag,
		SDKURL:      fmt.Sprintf("%s/renpy-%s-sdk.zip", dir, tag),
		RAPTURL:     fmt.Sprintf("%s/renpy-%s-rapt.zip", dir, tag),
		ChecksumURL: dir + "/checksums.txt",
	}
}

// parseListing extracts anchor texts from the HTML directory listing.
func parseListing(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing listing HTML: %w", err)
	}

	var tags []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if text := anchorText(n); text != "" {
				tags = append(tags, text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return tags, nil
}

// anchorText concatenates the direct text children of an anchor node.
func anchorText(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
