// Package router owns one routing invocation: configuration, the cache
// handle, the registry adapter, and the three-tier retrieval policy that
// ties them together.
//
// A Router is constructed once per process from the environment; no
// process-wide state survives the invocation.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"skillrouter/internal/cache"
	"skillrouter/internal/index"
	"skillrouter/internal/inject"
	"skillrouter/internal/match"
	"skillrouter/internal/registry"
)

// Prompts shorter than this (in runes, after trimming) are never routed;
// they are almost always bare commands or typos.
const minPromptRunes = 5

var (
	errNoIndex = errors.New("no index available")
	errNoBody  = errors.New("skill body unavailable")
)

// Router routes one prompt to at most one skill.
type Router struct {
	cfg     Config
	store   *cache.Store
	reg     registry.Registry
	matcher *match.Matcher
	debug   io.Writer
}

// New constructs a Router from cfg. Debug diagnostics go to debugOut when
// cfg.Debug is set; pass nil to discard.
func New(cfg Config, debugOut io.Writer) *Router {
	if debugOut == nil || !cfg.Debug {
		debugOut = io.Discard
	}

	return &Router{
		cfg:     cfg,
		store:   cache.NewStore(cfg.CacheDir, cfg.IndexTTL, cfg.BodyTTL),
		reg:     NewRegistry(cfg),
		matcher: match.NewMatcher(match.DefaultWeights(), cfg.Threshold, cfg.AmbiguityGap),
		debug:   debugOut,
	}
}

// NewRegistry builds the registry adapter selected by cfg. An empty kind
// autodetects: local when the URL names a directory holding index.json,
// http otherwise.
func NewRegistry(cfg Config) registry.Registry {
	kind := cfg.RegistryKind
	if kind == "" {
		if _, err := os.Stat(filepath.Join(cfg.RegistryURL, "index.json")); err == nil {
			kind = RegistryKindLocal
		} else {
			kind = RegistryKindHTTP
		}
	}

	if kind == RegistryKindLocal {
		return registry.NewLocal(cfg.RegistryURL)
	}

	return registry.NewHTTP(cfg.RegistryURL, cfg.FetchTimeout)
}

// Route matches prompt against the index and, on a hit, returns the fully
// formatted injection text. ok is false when nothing should be emitted; the
// reasons are only ever reported through debug diagnostics, never to the
// caller's stdout.
func (r *Router) Route(ctx context.Context, prompt string) (text string, ok bool) {
	start := time.Now()

	trimmed := strings.TrimSpace(prompt)
	if utf8.RuneCountInString(trimmed) < minPromptRunes {
		return "", false
	}

	idx, err := r.LoadIndex(ctx)
	if err != nil {
		r.debugf("no index available, skipping: %v", err)

		return "", false
	}

	ranked := r.matcher.Rank(prompt, idx)

	sel, found := r.matcher.Select(ranked)
	if !found {
		r.debugf("no match above threshold (%dms)", time.Since(start).Milliseconds())

		return "", false
	}

	body, err := r.ResolveBody(ctx, sel.Best)
	if err != nil {
		r.debugf("could not load body for %q: %v", sel.Best.ID, err)

		return "", false
	}

	body = inject.Truncate(body, r.cfg.BodyMaxChars)

	r.debugf("injected %q (score=%.1f, ambiguous=%t, %dms)",
		sel.Best.ID, sel.Score, sel.Ambiguous, time.Since(start).Milliseconds())

	return inject.Format(sel, string(body)), true
}

// LoadIndex applies the three-tier retrieval policy to the index: fresh
// cache, then registry fetch, then stale cache as the offline fallback.
func (r *Router) LoadIndex(ctx context.Context) (index.Index, error) {
	cached, freshness, err := r.store.GetIndex()
	if err != nil {
		r.debugf("index cache unreadable: %v", err)
	}

	if freshness == cache.Fresh {
		r.debugf("index loaded from valid cache")

		return cached, nil
	}

	fetched, fetchErr := r.reg.FetchIndex(ctx)
	if fetchErr == nil {
		putErr := r.store.PutIndex(fetched)
		if putErr != nil {
			r.debugf("caching index failed: %v", putErr)
		}

		r.debugf("index fetched from registry and cached")

		return fetched, nil
	}

	r.debugf("registry fetch failed: %v", fetchErr)

	if freshness == cache.Stale {
		r.debugf("index loaded from expired cache (offline fallback)")

		return cached, nil
	}

	return index.Index{}, fmt.Errorf("%w: %w", errNoIndex, fetchErr)
}

// ResolveBody applies the three-tier retrieval policy to one skill body.
// Every tier enforces the descriptor's content hash; a cached body that
// fails integrity counts as missing, and a fetched body that fails
// integrity is discarded rather than cached.
func (r *Router) ResolveBody(ctx context.Context, desc index.Descriptor) ([]byte, error) {
	cached, freshness, err := r.store.GetBody(desc.ID, desc.BodyHash)
	if err != nil {
		r.debugf("body cache unreadable for %q: %v", desc.ID, err)
	}

	if freshness == cache.Fresh {
		r.debugf("body %q loaded from cache", desc.ID)

		return cached, nil
	}

	fetched, fetchErr := r.reg.FetchBody(ctx, desc)
	if fetchErr == nil {
		putErr := r.store.PutBody(desc.ID, desc.BodyHash, fetched)
		if putErr != nil {
			r.debugf("caching body %q failed: %v", desc.ID, putErr)
		}

		r.debugf("body %q fetched and cached", desc.ID)

		return fetched, nil
	}

	r.debugf("body fetch failed for %q: %v", desc.ID, fetchErr)

	if freshness == cache.Stale {
		r.debugf("body %q loaded from expired cache (offline fallback)", desc.ID)

		return cached, nil
	}

	return nil, fmt.Errorf("%w: %w", errNoBody, fetchErr)
}

// Refresh bypasses the fresh-cache tier and force-fetches the index from
// the registry, storing it on success. Used by the refresh command, not by
// the hook path.
func (r *Router) Refresh(ctx context.Context) (index.Index, error) {
	fetched, err := r.reg.FetchIndex(ctx)
	if err != nil {
		return index.Index{}, err
	}

	putErr := r.store.PutIndex(fetched)
	if putErr != nil {
		return index.Index{}, putErr
	}

	return fetched, nil
}

// Rank exposes the scoring pipeline for the repl command.
func (r *Router) Rank(prompt string, idx index.Index) []match.Ranked {
	return r.matcher.Rank(prompt, idx)
}

// Select exposes winner selection for the repl command.
func (r *Router) Select(ranked []match.Ranked) (match.Selection, bool) {
	return r.matcher.Select(ranked)
}

// CacheStats reports the state of the on-disk cache.
func (r *Router) CacheStats() cache.Stats {
	return r.store.CollectStats()
}

func (r *Router) debugf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.debug, "[skill-router][debug] "+format+"\n", args...)
}
