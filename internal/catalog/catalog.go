package catalog

import (
	"context"
	"encoding/json"
	"time"

	"schoolportal/internal/cache"
	"schoolportal/internal/model"
)

type Store interface {
	GetService(ctx context.Context, code string) (model.ServiceCatalogEntry, error)
	ListServices(ctx context.Context) ([]model.ServiceCatalogEntry, error)
	InsertService(ctx context.Context, entry model.ServiceCatalogEntry) error
}

// Service fronts the read-mostly catalog table, caching the listing.
type Service struct {
	store    Store
	cache    cache.Cache
	cacheTTL time.Duration
}

const listCacheKey = "catalog:list"

func NewService(store Store, c cache.Cache, cacheTTL time.Duration) *Service {
	return &Service{store: store, cache: c, cacheTTL: cacheTTL}
}

// Lookup resolves a service code for order pricing and voucher scoping.
// Always reads through; only the listing is cached.
func (s *Service) Lookup(ctx context.Context, code string) (model.ServiceCatalogEntry, error) {
	return s.store.GetService(ctx, code)
}

func (s *Service) List(ctx context.Context) ([]model.ServiceCatalogEntry, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, listCacheKey); ok {
			var entries []model.ServiceCatalogEntry
			if err := json.Unmarshal(raw, &entries); err == nil {
				return entries, nil
			}
		}
	}

	entries, err := s.store.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(entries); err == nil {
			s.cache.Set(ctx, listCacheKey, raw, s.cacheTTL)
		}
	}
	return entries, nil
}

func (s *Service) Create(ctx context.Context, entry model.ServiceCatalogEntry) error {
	if err := s.store.InsertService(ctx, entry); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, listCacheKey)
	}
	return nil
}
