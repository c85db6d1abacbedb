// Package asset implements the Asset Manager (spec.md §4.2): it
// materializes a task's declared assets — inline data URLs or fetched HTTP
// resources — under a private scratch directory that the Sandbox mounts
// into its containers.
package asset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	deadlock "github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/srunlabs/srun/pkg/srunerr"
	"github.com/srunlabs/srun/pkg/task"
)

// defaultConcurrency bounds how many HTTP fetches Prepare runs at once,
// satisfying spec.md §4.2's "parallel bounded by a small concurrency."
const defaultConcurrency = 4

// Options configures a Manager.
type Options struct {
	// CacheDir roots the content-addressed HTTP cache (spec.md §6.4).
	// Empty uses an in-process memory cache, which is fine for a
	// single-shot CLI invocation but loses caching across process
	// restarts.
	CacheDir string

	// Concurrency bounds simultaneous HTTP fetches. Zero uses
	// defaultConcurrency.
	Concurrency int

	// CacheTTL forces a cached asset to be refetched once it's older than
	// this, on top of whatever revalidation httpcache already does from
	// response headers — the floor operators need when fetching from
	// servers that send no caching headers at all. Zero disables TTL
	// enforcement entirely (the cache is then trusted indefinitely, same
	// as before this field existed).
	CacheTTL time.Duration

	Log *logrus.Entry
}

// Manager owns a scratch directory for the lifetime of a single task run.
// It exclusively owns that directory and deletes it on Close, the Go
// equivalent of the original's Drop-based cleanup (spec.md §4.2).
type Manager struct {
	mu       deadlock.Mutex
	dir      string
	client   *http.Client
	cache    httpcache.Cache
	cacheDir string
	cacheTTL time.Duration
	limit    int
	log      *logrus.Entry
	closed   bool
}

// New creates a fresh scratch directory and an HTTP client backed by a
// content-addressed disk cache (or an in-memory cache when opts.CacheDir
// is empty), grounded on the same httpcache.NewTransport wiring used
// across the corpus (e2b-dev-infra's go.mod pulls httpcache transitively
// for the same purpose: a caching RoundTripper in front of plain
// net/http).
func New(opts Options) (*Manager, error) {
	dir, err := os.MkdirTemp("", "srun-asset-")
	if err != nil {
		return nil, srunerr.Wrap(srunerr.IO, err, "create asset scratch directory")
	}

	var cache httpcache.Cache
	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
			os.RemoveAll(dir)
			return nil, srunerr.Wrap(srunerr.IO, err, "create asset cache directory")
		}
		cache = diskcache.New(opts.CacheDir)
	} else {
		cache = httpcache.NewMemoryCache()
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	return &Manager{
		dir:      dir,
		client:   httpcache.NewTransport(cache).Client(),
		cache:    cache,
		cacheDir: opts.CacheDir,
		cacheTTL: opts.CacheTTL,
		limit:    limit,
		log:      opts.Log,
	}, nil
}

// Path returns the scratch root.
func (m *Manager) Path() string {
	return m.dir
}

// Prepare materializes every asset under the scratch root, per spec.md
// §4.2's algorithm: data URLs are decoded in place, http(s) URLs are
// fetched (through the cache) on a bounded pool of goroutines — Go's
// answer to "executed on a worker thread so the scheduler is not
// stalled" — and anything else is a Spec error.
func (m *Manager) Prepare(ctx context.Context, assets task.AssetMap) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.limit)

	for relPath, source := range assets {
		relPath, source := relPath, source
		g.Go(func() error {
			return m.prepareOne(ctx, relPath, source)
		})
	}

	return g.Wait()
}

func (m *Manager) prepareOne(ctx context.Context, relPath, source string) error {
	dest := filepath.Join(m.dir, relPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return srunerr.Wrap(srunerr.IO, err, "create asset parent directory for %q", relPath)
	}

	switch {
	case hasPrefix(source, "data:"):
		body, err := decodeDataURL(source)
		if err != nil {
			return err
		}
		if m.log != nil {
			m.log.Debugf("writing asset %q from data URL", relPath)
		}
		return os.WriteFile(dest, body, 0o644)

	case hasPrefix(source, "http:"), hasPrefix(source, "https:"):
		if m.log != nil {
			m.log.Debugf("fetching asset %q from %s", relPath, source)
		}
		return m.fetch(ctx, source, dest)

	default:
		return srunerr.New(srunerr.Spec, "asset must start with data or http")
	}
}

func (m *Manager) fetch(ctx context.Context, source, dest string) error {
	if m.cacheStale(source) {
		// cacheKeyFor mirrors httpcache's own GET cache key (the request
		// URL verbatim), so deleting it here forces the transport to miss
		// and refetch instead of trusting a stale cached response that
		// arrived with no validating headers.
		m.cache.Delete(cacheKeyFor(source))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return srunerr.Wrap(srunerr.Spec, err, "build request for asset %q", source)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return srunerr.Wrap(srunerr.Connection, err, "fetch asset %q", source)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return srunerr.New(srunerr.Connection, "fetch asset %q: status %d", source, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return srunerr.Wrap(srunerr.IO, err, "create asset file for %q", source)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return srunerr.Wrap(srunerr.IO, err, "write asset file for %q", source)
	}

	m.touchCacheEntry(source)
	return nil
}

// cacheStale reports whether source's cached entry is older than
// cacheTTL. TTL enforcement is disabled (always fresh) when either
// cacheTTL or cacheDir is unset, since an in-memory cache never outlives
// the fetch that populated it anyway.
func (m *Manager) cacheStale(source string) bool {
	if m.cacheTTL <= 0 || m.cacheDir == "" {
		return false
	}
	info, err := os.Stat(m.ttlMarkerPath(source))
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > m.cacheTTL
}

// touchCacheEntry records the fetch time backing cacheStale's mtime
// comparison. It's a best-effort side file next to the disk cache, not
// the disk cache's own internal bookkeeping, so a failure to write it is
// not fatal to the fetch that just succeeded.
func (m *Manager) touchCacheEntry(source string) {
	if m.cacheTTL <= 0 || m.cacheDir == "" {
		return
	}
	path := m.ttlMarkerPath(source)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(path, nil, 0o644)
}

func (m *Manager) ttlMarkerPath(source string) string {
	sum := sha256.Sum256([]byte(cacheKeyFor(source)))
	return filepath.Join(m.cacheDir, ".srun-ttl", hex.EncodeToString(sum[:]))
}

// cacheKeyFor mirrors httpcache's cacheKey for a GET request: the request
// URL verbatim. Every asset fetch is a GET (see fetch above), so this
// never needs the method-prefixed form httpcache uses for other verbs.
func cacheKeyFor(source string) string {
	return source
}

// Close deletes the scratch directory. It is idempotent and safe to defer
// unconditionally, fulfilling the spec's "deleted atomically on Asset
// Manager destruction."
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	if err := os.RemoveAll(m.dir); err != nil {
		return srunerr.Wrap(srunerr.IO, err, "remove asset scratch directory")
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
