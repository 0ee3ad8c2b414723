package cache

import (
	"context"
	"fmt"
	"net/url"
)

// Namespaces under which cache entries are stored. Entry keys have the shape
// <namespace>/<url-encoded-identifier>.json.
const (
	NamespaceWorks     = "works"
	NamespaceAuthority = "authority"
)

const schemeS3 = "s3"

// Cache is a durable byte store for raw registry responses.
// Get returns nil bytes and nil error on a miss. Put is never called with
// empty data; negative results are not cached.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// New selects a cache backend from a location string. A bare path selects a
// local directory cache, an s3://bucket/prefix URI selects the object-storage
// cache. Any other scheme is a configuration error.
func New(ctx context.Context, location string) (Cache, error) {
	if location == "" {
		return nil, fmt.Errorf("cache location is empty")
	}
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		return newDirCache(location)
	}
	if u.Scheme == schemeS3 {
		return newS3Cache(ctx, u.Host, u.Path)
	}
	return nil, fmt.Errorf("invalid cache scheme: %s", u.Scheme)
}
