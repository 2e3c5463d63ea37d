package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"oriyet/internal/domain"
)

// lookupResolver caches reference-table ids per process. A code missing from
// its table is a seeding error and fails fast with ErrLookupNotFound.
type lookupResolver struct {
	repo   domain.LookupRepository
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[domain.LookupDomain]map[string]int64
}

// NewLookupResolver returns a strict, caching LookupResolver.
func NewLookupResolver(repo domain.LookupRepository, logger *slog.Logger) domain.LookupResolver {
	return &lookupResolver{
		repo:   repo,
		logger: logger,
		cache:  make(map[domain.LookupDomain]map[string]int64),
	}
}

func (r *lookupResolver) Resolve(ctx context.Context, d domain.LookupDomain, code string) (int64, error) {
	r.mu.RLock()
	id, ok := r.cache[d][code]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	entry, err := r.repo.GetByCode(ctx, d, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.ErrorContext(ctx, "lookup code missing", "domain", d, "code", code)
			return 0, domain.NewError(domain.KindLookupNotFound, fmt.Sprintf("%s code %q not found", d, code))
		}
		return 0, domain.Transient(fmt.Errorf("resolve %s/%s: %w", d, code, err))
	}

	r.mu.Lock()
	if r.cache[d] == nil {
		r.cache[d] = make(map[string]int64)
	}
	r.cache[d][code] = entry.ID
	r.mu.Unlock()
	return entry.ID, nil
}

// Warm loads every reference table into the cache.
func (r *lookupResolver) Warm(ctx context.Context) error {
	loaded := make(map[domain.LookupDomain]map[string]int64, len(domain.LookupDomains))
	for _, d := range domain.LookupDomains {
		entries, err := r.repo.ListByDomain(ctx, d)
		if err != nil {
			return fmt.Errorf("warm %s: %w", d, err)
		}
		codes := make(map[string]int64, len(entries))
		for _, e := range entries {
			codes[e.Code] = e.ID
		}
		loaded[d] = codes
	}

	r.mu.Lock()
	r.cache = loaded
	r.mu.Unlock()
	r.logger.Info("lookup cache warmed", "domains", len(loaded))
	return nil
}

func (r *lookupResolver) Invalidate() {
	r.mu.Lock()
	r.cache = make(map[domain.LookupDomain]map[string]int64)
	r.mu.Unlock()
}

// resolveCode resolves a typed enumeration value, rejecting values outside the closed set.
func resolveCode[C domain.LookupCode](ctx context.Context, r domain.LookupResolver, d domain.LookupDomain, code C) (int64, error) {
	if !code.Valid() {
		return 0, domain.NewError(domain.KindInvalidInput, fmt.Sprintf("invalid %s code %q", d, string(code)))
	}
	return r.Resolve(ctx, d, string(code))
}

// resolveCodes resolves several codes of one domain.
func resolveCodes[C domain.LookupCode](ctx context.Context, r domain.LookupResolver, d domain.LookupDomain, codes ...C) ([]int64, error) {
	ids := make([]int64, 0, len(codes))
	for _, c := range codes {
		id, err := resolveCode(ctx, r, d, c)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
