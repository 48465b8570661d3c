package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

const refdataTTL = 5 * time.Minute

// CachedAccountRepository caches account lookups in Redis. Accounts are
// reference data managed outside this service, so a short TTL is enough.
type CachedAccountRepository struct {
	inner usecase.AccountRepository
	cache *Cache
}

// NewCachedAccountRepository creates a new CachedAccountRepository.
func NewCachedAccountRepository(inner usecase.AccountRepository, cache *Cache) *CachedAccountRepository {
	return &CachedAccountRepository{inner: inner, cache: cache}
}

// GetByID returns the cached account or falls through to the inner repository.
func (r *CachedAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	key := "account:" + id

	if data, err := r.cache.Get(ctx, key); err == nil {
		var account domain.Account
		if err := json.Unmarshal(data, &account); err == nil {
			return &account, nil
		}
	}

	account, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(account); err == nil {
		// Best effort: a cache miss on the next call is fine.
		_ = r.cache.Set(ctx, key, data, refdataTTL)
	}

	return account, nil
}

// GetByIDs returns the accounts for the given IDs, one by one through the cache.
func (r *CachedAccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		account, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// CachedCurrencyRepository caches currency lookups in Redis.
type CachedCurrencyRepository struct {
	inner usecase.CurrencyRepository
	cache *Cache
}

// NewCachedCurrencyRepository creates a new CachedCurrencyRepository.
func NewCachedCurrencyRepository(inner usecase.CurrencyRepository, cache *Cache) *CachedCurrencyRepository {
	return &CachedCurrencyRepository{inner: inner, cache: cache}
}

// GetByID returns the cached currency or falls through to the inner repository.
func (r *CachedCurrencyRepository) GetByID(ctx context.Context, id string) (*domain.Currency, error) {
	key := "currency:" + id

	if data, err := r.cache.Get(ctx, key); err == nil {
		var currency domain.Currency
		if err := json.Unmarshal(data, &currency); err == nil {
			return &currency, nil
		}
	}

	currency, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(currency); err == nil {
		_ = r.cache.Set(ctx, key, data, refdataTTL)
	}

	return currency, nil
}
