package timezone

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/ahmetcoskunkizilkaya/renewal-engine/internal/renewal"
	"github.com/dgraph-io/ristretto"
)

var ErrUnknownTimezone = errors.New("unknown timezone")

// Resolver answers local-time questions for IANA timezone names.
// Loaded locations are cached; an empty name resolves to UTC.
type Resolver struct {
	cache *ristretto.Cache
}

func NewResolver(maxEntries int64) (*Resolver, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create timezone cache: %w", err)
	}
	return &Resolver{cache: cache}, nil
}

func (r *Resolver) Location(name string) (*time.Location, error) {
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	if v, ok := r.cache.Get(name); ok {
		if loc, ok := v.(*time.Location); ok {
			return loc, nil
		}
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownTimezone, name, err)
	}
	r.cache.Set(name, loc, 1)
	return loc, nil
}

func (r *Resolver) LocalTime(name string, now time.Time) (time.Time, error) {
	loc, err := r.Location(name)
	if err != nil {
		return time.Time{}, err
	}
	return now.In(loc), nil
}

func (r *Resolver) LocalHour(name string, now time.Time) (int, error) {
	local, err := r.LocalTime(name, now)
	if err != nil {
		return 0, err
	}
	return local.Hour(), nil
}

// Today returns the user's local calendar date as UTC midnight.
func (r *Resolver) Today(name string, now time.Time) (time.Time, error) {
	local, err := r.LocalTime(name, now)
	if err != nil {
		return time.Time{}, err
	}
	return renewal.DateOf(local), nil
}

func (r *Resolver) Close() {
	r.cache.Close()
}
