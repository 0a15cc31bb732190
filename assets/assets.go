// Package assets fingerprints static files so their URLs change whenever
// their contents do.
package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// Resolver appends a content hash to asset URLs served from a file system.
type Resolver struct {
	fsys   fs.FS
	prefix string
	dev    bool

	mu    sync.RWMutex
	cache map[string]string
}

// Option configures the resolver.
type Option func(*Resolver)

// WithDevMode rehashes on every call to pick up asset changes.
func WithDevMode(enabled bool) Option {
	return func(r *Resolver) {
		r.dev = enabled
	}
}

// NewResolver resolves files in fsys, mounted under the URL prefix.
func NewResolver(fsys fs.FS, prefix string, options ...Option) *Resolver {
	resolver := &Resolver{
		fsys:   fsys,
		prefix: "/" + strings.Trim(prefix, "/"),
		cache:  make(map[string]string),
	}
	for _, opt := range options {
		opt(resolver)
	}
	return resolver
}

// Resolve maps a name such as "app.css" to "/static/app.css?v=1a2b3c4d".
// Unknown names resolve to their unversioned URL.
func (r *Resolver) Resolve(name string) string {
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	url := path.Join(r.prefix, clean)
	if clean == "" {
		return url
	}

	if !r.dev {
		r.mu.RLock()
		cached, ok := r.cache[clean]
		r.mu.RUnlock()
		if ok {
			return cached
		}
	}

	hash, err := hashFile(r.fsys, clean)
	if err != nil {
		return url
	}
	versioned := url + "?v=" + hash[:8]
	if !r.dev {
		r.mu.Lock()
		r.cache[clean] = versioned
		r.mu.Unlock()
	}
	return versioned
}

// Func returns a template helper function.
func (r *Resolver) Func() func(string) string {
	return r.Resolve
}

func hashFile(fsys fs.FS, name string) (string, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
