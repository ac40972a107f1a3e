package tracking

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store used by tests and single-node deployments
// that run without a database.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	recs   []Record
}

func NewMemStore() *MemStore { return &MemStore{nextID: 1} }

func (m *MemStore) Get(_ context.Context, userID string, scoID int64, attempt int, element string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.recs {
		if r.UserID == userID && r.SCOID == scoID && r.Attempt == attempt && r.Element == element {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (m *MemStore) GetSCO(_ context.Context, userID string, scoID int64, attempt int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.recs {
		if r.UserID == userID && r.SCOID == scoID && r.Attempt == attempt {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Element < out[j].Element })
	return out, nil
}

func (m *MemStore) Insert(_ context.Context, r Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextID
	m.nextID++
	m.recs = append(m.recs, r)
	return r.ID, nil
}

func (m *MemStore) Update(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == r.ID {
			m.recs[i].Value = r.Value
			m.recs[i].Modified = r.Modified
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemStore) HasTracks(_ context.Context, userID, packageID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.recs {
		if r.UserID == userID && r.PackageID == packageID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) MaxAttempt(_ context.Context, userID, packageID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, r := range m.recs {
		if r.UserID == userID && r.PackageID == packageID && r.Attempt > max {
			max = r.Attempt
		}
	}
	return max, nil
}

func (m *MemStore) MinAttempt(_ context.Context, userID, packageID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	min := 0
	for _, r := range m.recs {
		if r.UserID != userID || r.PackageID != packageID {
			continue
		}
		if min == 0 || r.Attempt < min {
			min = r.Attempt
		}
	}
	return min, nil
}

func (m *MemStore) MaxSatisfiedAttempt(_ context.Context, userID, packageID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := 0
	for _, r := range m.recs {
		if r.UserID != userID || r.PackageID != packageID {
			continue
		}
		if (r.Value == "completed" || r.Value == "passed") && r.Attempt > max {
			max = r.Attempt
		}
	}
	return max, nil
}

func (m *MemStore) DistinctAttempts(_ context.Context, userID, packageID string) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[int]bool{}
	for _, r := range m.recs {
		if r.UserID == userID && r.PackageID == packageID {
			seen[r.Attempt] = true
		}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

func (m *MemStore) CountAttempts(_ context.Context, userID, packageID, element string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[int]bool{}
	for _, r := range m.recs {
		if r.UserID != userID || r.PackageID != packageID {
			continue
		}
		if element != "" && r.Element != element {
			continue
		}
		seen[r.Attempt] = true
	}
	return len(seen), nil
}

func (m *MemStore) AttemptElements(_ context.Context, userID, packageID string, attempt int, element string) (map[int64]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[int64]string{}
	for _, r := range m.recs {
		if r.UserID == userID && r.PackageID == packageID && r.Attempt == attempt && r.Element == element {
			out[r.SCOID] = r.Value
		}
	}
	return out, nil
}

func (m *MemStore) UserElements(_ context.Context, userID, packageID string, elements []string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := map[string]bool{}
	for _, el := range elements {
		want[el] = true
	}
	var out []Record
	for _, r := range m.recs {
		if r.UserID == userID && r.PackageID == packageID && want[r.Element] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemStore) RuntimeWindow(_ context.Context, userID, packageID string, scoID int64, attempt int) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var start, finish int64
	for _, r := range m.recs {
		if r.UserID != userID || r.PackageID != packageID || r.Attempt != attempt {
			continue
		}
		if scoID != 0 && r.SCOID != scoID {
			continue
		}
		if start == 0 || r.Modified < start {
			start = r.Modified
		}
		if r.Modified > finish {
			finish = r.Modified
		}
	}
	return start, finish, nil
}

func (m *MemStore) DeleteAttempt(_ context.Context, userID, packageID string, attempt int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.recs[:0]
	for _, r := range m.recs {
		if r.UserID == userID && r.PackageID == packageID && r.Attempt == attempt {
			continue
		}
		kept = append(kept, r)
	}
	m.recs = kept
	return nil
}

func (m *MemStore) DeleteUser(_ context.Context, userID, packageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.recs[:0]
	for _, r := range m.recs {
		if r.UserID == userID && r.PackageID == packageID {
			continue
		}
		kept = append(kept, r)
	}
	m.recs = kept
	return nil
}
