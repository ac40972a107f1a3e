package content

import (
	"context"
	"sort"
	"sync"
)

// MemProvider is an in-memory Provider for tests and single-process use.
type MemProvider struct {
	mu       sync.RWMutex
	scoes    []SCO
	packages map[string]Package
	nextID   int64
}

func NewMemProvider() *MemProvider { return &MemProvider{} }

func (m *MemProvider) PutSCO(_ context.Context, sco SCO) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sco.ID = m.nextID
	if sco.Extension == nil {
		sco.Extension = map[string]string{}
	}
	m.scoes = append(m.scoes, sco)
	return sco.ID, nil
}

func (m *MemProvider) GetSCO(_ context.Context, id int64) (SCO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.scoes {
		if s.ID == id {
			return s, nil
		}
	}
	return SCO{}, ErrSCONotFound
}

func (m *MemProvider) ListSCOes(_ context.Context, packageID, organization string) ([]SCO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []SCO
	for _, s := range m.scoes {
		if s.PackageID != packageID {
			continue
		}
		if organization != "" && s.Organization != organization {
			continue
		}
		out = append(out, s)
	}
	sortSCOes(out)
	return out, nil
}

func (m *MemProvider) FirstLaunchable(ctx context.Context, packageID string) (SCO, error) {
	return m.NextLaunchable(ctx, packageID, 0)
}

func (m *MemProvider) NextLaunchable(_ context.Context, packageID string, afterID int64) (SCO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var candidates []SCO
	for _, s := range m.scoes {
		if s.PackageID == packageID && s.Launch != "" && s.ID > afterID {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return SCO{}, ErrSCONotFound
	}
	sortSCOes(candidates)
	return candidates[0], nil
}

func (m *MemProvider) CountLaunchable(_ context.Context, packageID, organization string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, s := range m.scoes {
		if s.PackageID != packageID || s.Launch == "" {
			continue
		}
		if organization != "" && s.Organization != organization {
			continue
		}
		n++
	}
	return n, nil
}

func (m *MemProvider) GetPackage(_ context.Context, id string) (Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if pkg, ok := m.packages[id]; ok {
		return pkg, nil
	}
	return Package{}, ErrPackageNotFound
}

func (m *MemProvider) PutPackage(_ context.Context, pkg Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.packages == nil {
		m.packages = map[string]Package{}
	}
	m.packages[pkg.ID] = pkg
	return nil
}

func sortSCOes(scoes []SCO) {
	sort.SliceStable(scoes, func(i, j int) bool {
		if scoes[i].SortOrder != scoes[j].SortOrder {
			return scoes[i].SortOrder < scoes[j].SortOrder
		}
		return scoes[i].ID < scoes[j].ID
	})
}
