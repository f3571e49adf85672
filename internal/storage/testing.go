package storage

import "clicker_webapp/internal/domain"

// SeedPackage inserts reference data into a Memory store. Test helper.
func SeedPackage(m *Memory, p domain.Package) domain.Package {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == 0 {
		m.pkgSeq++
		p.ID = m.pkgSeq
	} else if p.ID > m.pkgSeq {
		m.pkgSeq = p.ID
	}
	c := p
	m.packages[p.ID] = &c
	return p
}

// SeedStoreItem inserts catalogue reference data into a Memory store. Test helper.
func SeedStoreItem(m *Memory, it domain.StoreItem) domain.StoreItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	if it.ID == 0 {
		m.itemSeq++
		it.ID = m.itemSeq
	} else if it.ID > m.itemSeq {
		m.itemSeq = it.ID
	}
	c := it
	m.items[it.ID] = &c
	return it
}
