package cache

import (
	"sync"
	"time"

	"invest-ledger/internal/storages"
)

// PackagesCache кеш списка инвестиционных пакетов
type PackagesCache struct {
	packages []storages.InvestmentPackage
	mu       sync.RWMutex
	ttl      time.Duration
	lastUp   time.Time
}

// NewPackagesCache создает новый кеш
func NewPackagesCache(ttl time.Duration) *PackagesCache {
	return &PackagesCache{ttl: ttl}
}

// Set сохраняет список пакетов в кеш
func (c *PackagesCache) Set(packages []storages.InvestmentPackage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.packages = copyPackages(packages)
	c.lastUp = time.Now()
}

// Get возвращает копию списка, если он актуален
func (c *PackagesCache) Get() ([]storages.InvestmentPackage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastUp.IsZero() || time.Since(c.lastUp) > c.ttl {
		return nil, false
	}

	return copyPackages(c.packages), true
}

// Invalidate сбрасывает кеш после изменения каталога
func (c *PackagesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.packages = nil
	c.lastUp = time.Time{}
}

// IsValid проверяет, актуален ли кеш
func (c *PackagesCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return !c.lastUp.IsZero() && time.Since(c.lastUp) <= c.ttl
}

func copyPackages(packages []storages.InvestmentPackage) []storages.InvestmentPackage {
	if packages == nil {
		return []storages.InvestmentPackage{}
	}
	out := make([]storages.InvestmentPackage, len(packages))
	copy(out, packages)
	return out
}
