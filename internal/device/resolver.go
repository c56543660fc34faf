package device

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/router-panel/router-panel-pro/internal/models"
	"github.com/router-panel/router-panel-pro/internal/upstream"
)

// Resolver maps opaque device ids to connection profiles. Profiles come
// from the panel datastore and are cached for the life of the process;
// entries are evicted only when the datastore confirms the id is gone,
// never by age.
type Resolver struct {
	store upstream.Store

	mu    sync.RWMutex
	cache map[string]*models.DeviceProfile
}

// NewResolver creates a profile resolver backed by the datastore
func NewResolver(store upstream.Store) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]*models.DeviceProfile),
	}
}

// Resolve returns the profile for deviceID, from cache when possible. The
// caller's Authorization header is passed through to the datastore on a
// miss. Concurrent misses for the same id may each fetch; last write wins.
func (r *Resolver) Resolve(ctx context.Context, authorization, deviceID string) (*models.DeviceProfile, error) {
	r.mu.RLock()
	profile, ok := r.cache[deviceID]
	r.mu.RUnlock()
	if ok {
		return profile, nil
	}

	profiles, err := r.store.ListDevices(ctx, authorization)
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		if p.ID == deviceID {
			r.mu.Lock()
			r.cache[deviceID] = p
			r.mu.Unlock()
			return p, nil
		}
	}

	// Confirmed absent upstream: drop any stale entry
	r.mu.Lock()
	delete(r.cache, deviceID)
	r.mu.Unlock()

	log.Debug().Str("device_id", deviceID).Msg("Device not found in datastore")
	return nil, ErrNotFound
}

// Evict drops one cached profile, forcing the next resolve to refetch
func (r *Resolver) Evict(deviceID string) {
	r.mu.Lock()
	delete(r.cache, deviceID)
	r.mu.Unlock()
}
