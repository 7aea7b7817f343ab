package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"news_ingestor/internal/domain"
)

// ArticleID fingerprints a canonical link. Equal links give equal ids
// whatever the source.
func ArticleID(link string) (string, error) {
	if link == "" {
		return "", domain.ErrMissingLink
	}
	sum := md5.Sum([]byte(link))
	return hex.EncodeToString(sum[:]), nil
}

// ResolveLink turns protocol-relative, root-relative and bare relative
// links into absolute URLs against base.
func ResolveLink(base, link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", domain.ErrMissingLink
	}

	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", link, err)
	}
	ref.Fragment = ""

	if ref.IsAbs() {
		if !webScheme(ref.Scheme) {
			return "", fmt.Errorf("link %q has unsupported scheme %q: %w", link, ref.Scheme, domain.ErrMissingLink)
		}
		return ref.String(), nil
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || baseURL.Host == "" {
		return "", fmt.Errorf("resolve relative link %q: invalid base %q", link, base)
	}
	if baseURL.Scheme == "" {
		baseURL.Scheme = "https"
	}

	// Bare links ("tin/abc.htm") hang off the site root, not the base path.
	if ref.Host == "" && !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}

	resolved := baseURL.ResolveReference(ref)
	if !webScheme(resolved.Scheme) {
		return "", fmt.Errorf("link %q has unsupported scheme %q: %w", link, resolved.Scheme, domain.ErrMissingLink)
	}
	return resolved.String(), nil
}

func webScheme(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "http", "https":
		return true
	}
	return false
}
