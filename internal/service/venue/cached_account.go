package venue

import (
	"context"
	"time"

	"MicroTrade/internal/domain/models"
	drepo "MicroTrade/internal/domain/repository"
	svccache "MicroTrade/internal/service/cache"
)

const balanceCacheKey = "account:balance"

// CachedAccount memoizes balance lookups so a cycle over many instruments
// hits the venue once, not once per instrument.
type CachedAccount struct {
	inner drepo.Account
	cache *svccache.TTLCache
	ttl   time.Duration
}

func NewCachedAccount(inner drepo.Account, ttl time.Duration) *CachedAccount {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedAccount{
		inner: inner,
		cache: svccache.NewTTLCache(),
		ttl:   ttl,
	}
}

func (a *CachedAccount) Balance(ctx context.Context) (models.Balance, error) {
	if v, ok := a.cache.Get(balanceCacheKey); ok {
		if bal, ok2 := v.(models.Balance); ok2 {
			return bal, nil
		}
	}
	bal, err := a.inner.Balance(ctx)
	if err != nil {
		return models.Balance{}, err
	}
	a.cache.Set(balanceCacheKey, bal, a.ttl)
	return bal, nil
}

// Invalidate drops the cached balance, e.g. right after a fill.
func (a *CachedAccount) Invalidate() {
	a.cache.Delete(balanceCacheKey)
}

var _ drepo.Account = (*CachedAccount)(nil)
