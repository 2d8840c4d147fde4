package memstore

import (
	"context"
	"sync"

	"solarforge/internal/domain"
)

// Directory is a static domain.UserDirectory.
type Directory struct {
	mu       sync.RWMutex
	profiles map[string]domain.UserProfile
}

func NewDirectory(profiles ...domain.UserProfile) *Directory {
	d := &Directory{profiles: make(map[string]domain.UserProfile, len(profiles))}
	for _, p := range profiles {
		d.profiles[p.ID] = p
	}
	return d
}

// Put adds or replaces a profile.
func (d *Directory) Put(p domain.UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.ID] = p
}

func (d *Directory) Profiles(_ context.Context, userIDs []string) (map[string]domain.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]domain.UserProfile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := d.profiles[id]; ok {
			p.Roles = append([]string(nil), p.Roles...)
			out[id] = p
		}
	}
	return out, nil
}
