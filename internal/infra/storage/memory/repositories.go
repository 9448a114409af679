package memory

import (
	"context"
	"sync"

	domainavailability "github.com/andresg0412/waiwahost-plataforma/internal/domain/availability"
)

// Store holds committed intervals and properties. Units of work stage their
// writes and apply them on Commit.
type Store struct {
	mu         sync.RWMutex
	intervals  map[domainavailability.Ref]domainavailability.Interval
	properties map[domainavailability.PropertyID]domainavailability.Property

	locksMu sync.Mutex
	locks   map[domainavailability.PropertyID]chan struct{}
}

func NewStore() *Store {
	return &Store{
		intervals:  make(map[domainavailability.Ref]domainavailability.Interval),
		properties: make(map[domainavailability.PropertyID]domainavailability.Property),
		locks:      make(map[domainavailability.PropertyID]chan struct{}),
	}
}

func (s *Store) window(q domainavailability.WindowQuery) []domainavailability.Interval {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainavailability.Interval, 0)
	for _, iv := range s.intervals {
		if q.Matches(iv) {
			out = append(out, iv)
		}
	}
	return out
}

func (s *Store) interval(ref domainavailability.Ref) (domainavailability.Interval, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iv, ok := s.intervals[ref]
	return iv, ok
}

func (s *Store) property(id domainavailability.PropertyID) (domainavailability.Property, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	return p, ok
}

func (s *Store) listProperties() []domainavailability.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domainavailability.Property, 0, len(s.properties))
	for _, p := range s.properties {
		out = append(out, p)
	}
	return out
}

// lock blocks until the property lock is free or ctx ends.
func (s *Store) lock(ctx context.Context, id domainavailability.PropertyID) (func(), error) {
	s.locksMu.Lock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	s.locksMu.Unlock()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// intervalRepository reads committed state plus the unit's staged writes.
type intervalRepository struct {
	unit *Unit
}

func (r intervalRepository) Window(ctx context.Context, q domainavailability.WindowQuery) ([]domainavailability.Interval, error) {
	u := r.unit
	base := u.store.window(q)
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]domainavailability.Interval, 0, len(base)+len(u.saves))
	for _, iv := range base {
		ref := iv.Ref()
		if _, gone := u.deletes[ref]; gone {
			continue
		}
		if _, staged := u.saves[ref]; staged {
			continue
		}
		out = append(out, iv)
	}
	for _, iv := range u.saves {
		if q.Matches(iv) {
			out = append(out, iv.Snapshot())
		}
	}
	domainavailability.SortIntervals(out)
	return out, nil
}

func (r intervalRepository) ByRef(ctx context.Context, ref domainavailability.Ref) (*domainavailability.Interval, error) {
	u := r.unit
	u.mu.Lock()
	if _, gone := u.deletes[ref]; gone {
		u.mu.Unlock()
		return nil, domainavailability.ErrIntervalNotFound
	}
	if iv, ok := u.saves[ref]; ok {
		u.mu.Unlock()
		out := iv.Snapshot()
		return &out, nil
	}
	u.mu.Unlock()
	iv, ok := u.store.interval(ref)
	if !ok {
		return nil, domainavailability.ErrIntervalNotFound
	}
	return &iv, nil
}

// Save stages iv and bumps its version. The committed version must still be
// the one iv was read at.
func (r intervalRepository) Save(ctx context.Context, iv *domainavailability.Interval) error {
	u := r.unit
	if err := u.writable(); err != nil {
		return err
	}
	ref := iv.Ref()
	u.mu.Lock()
	defer u.mu.Unlock()
	base := iv.Version
	if staged, ok := u.saves[ref]; ok {
		if staged.Version != iv.Version {
			return domainavailability.ErrConcurrentUpdate
		}
		base = u.baseVersions[ref]
	} else if err := u.store.checkVersion(ref, base); err != nil {
		return err
	}
	delete(u.deletes, ref)
	iv.Version++
	u.saves[ref] = iv.Snapshot()
	u.baseVersions[ref] = base
	return nil
}

func (r intervalRepository) Delete(ctx context.Context, ref domainavailability.Ref) error {
	u := r.unit
	if err := u.writable(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, staged := u.saves[ref]; staged {
		delete(u.saves, ref)
		if u.baseVersions[ref] == 0 {
			delete(u.baseVersions, ref)
			return nil
		}
		u.deletes[ref] = struct{}{}
		return nil
	}
	current, ok := u.store.interval(ref)
	if !ok {
		return domainavailability.ErrIntervalNotFound
	}
	u.deletes[ref] = struct{}{}
	u.baseVersions[ref] = current.Version
	return nil
}

func (s *Store) checkVersion(ref domainavailability.Ref, version int64) error {
	current, ok := s.interval(ref)
	switch {
	case !ok && version == 0:
		return nil
	case !ok:
		return domainavailability.ErrIntervalNotFound
	case current.Version != version:
		return domainavailability.ErrConcurrentUpdate
	default:
		return nil
	}
}

type propertyRepository struct {
	unit *Unit
}

func (r propertyRepository) ByID(ctx context.Context, id domainavailability.PropertyID) (*domainavailability.Property, error) {
	r.unit.mu.Lock()
	staged, ok := r.unit.props[id]
	r.unit.mu.Unlock()
	if ok {
		return &staged, nil
	}
	p, ok := r.unit.store.property(id)
	if !ok {
		return nil, domainavailability.ErrPropertyNotFound
	}
	return &p, nil
}

func (r propertyRepository) List(ctx context.Context, filter domainavailability.PropertyFilter) ([]domainavailability.Property, error) {
	all := r.unit.store.listProperties()
	r.unit.mu.Lock()
	if len(r.unit.props) > 0 {
		merged := make([]domainavailability.Property, 0, len(all)+len(r.unit.props))
		for _, p := range all {
			if _, staged := r.unit.props[p.ID]; !staged {
				merged = append(merged, p)
			}
		}
		for _, p := range r.unit.props {
			merged = append(merged, p)
		}
		all = merged
	}
	r.unit.mu.Unlock()
	out := domainavailability.FilterProperties(all, filter)
	domainavailability.SortProperties(out)
	return out, nil
}

func (r propertyRepository) Save(ctx context.Context, p *domainavailability.Property) error {
	if err := r.unit.writable(); err != nil {
		return err
	}
	if p == nil || p.ID == "" {
		return &domainavailability.ValidationError{Field: "property_id", Reason: "required"}
	}
	r.unit.mu.Lock()
	defer r.unit.mu.Unlock()
	r.unit.props[p.ID] = *p
	return nil
}
