package market

import (
	"errors"
	"testing"
)

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestValidateWindow(t *testing.T) {
	policy := Policy{
		MinListingDuration: 10,
		MaxListingDuration: 100,
		MaxStartDelay:      50,
	}
	now := int64(1000)

	if err := policy.ValidateWindow(now, 1010, 1060); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}
	if err := policy.ValidateWindow(now, 1010, 1015); !errors.Is(err, ErrDurationTooShort) {
		t.Fatalf("expected ErrDurationTooShort, got %v", err)
	}
	if err := policy.ValidateWindow(now, 1010, 1210); !errors.Is(err, ErrDurationTooLong) {
		t.Fatalf("expected ErrDurationTooLong, got %v", err)
	}
	if err := policy.ValidateWindow(now, 1100, 1150); !errors.Is(err, ErrStartTooFar) {
		t.Fatalf("expected ErrStartTooFar, got %v", err)
	}
}

func TestValidateWindowZeroBoundsDisabled(t *testing.T) {
	var policy Policy
	if err := policy.ValidateWindow(0, 1, 2); err != nil {
		t.Fatalf("zero policy must accept any window: %v", err)
	}
}

type mockCatalogState struct {
	entries map[[20]byte]map[[20]byte]map[uint64]*CatalogEntry
}

func newMockCatalogState() *mockCatalogState {
	return &mockCatalogState{entries: make(map[[20]byte]map[[20]byte]map[uint64]*CatalogEntry)}
}

func (m *mockCatalogState) CatalogPut(host [20]byte, entry *CatalogEntry) error {
	sellers, ok := m.entries[host]
	if !ok {
		sellers = make(map[[20]byte]map[uint64]*CatalogEntry)
		m.entries[host] = sellers
	}
	seqs, ok := sellers[entry.Seller]
	if !ok {
		seqs = make(map[uint64]*CatalogEntry)
		sellers[entry.Seller] = seqs
	}
	seqs[entry.Sequence] = entry.Clone()
	return nil
}

func (m *mockCatalogState) CatalogGet(host, seller [20]byte, sequence uint64) (*CatalogEntry, bool, error) {
	entry, ok := m.entries[host][seller][sequence]
	if !ok {
		return nil, false, nil
	}
	return entry.Clone(), true, nil
}

func (m *mockCatalogState) CatalogDelete(host, seller [20]byte, sequence uint64) error {
	delete(m.entries[host][seller], sequence)
	return nil
}

func (m *mockCatalogState) CatalogList(host, seller [20]byte) ([]*CatalogEntry, error) {
	var out []*CatalogEntry
	for _, entry := range m.entries[host][seller] {
		out = append(out, entry.Clone())
	}
	return out, nil
}

func TestCatalogAddRemove(t *testing.T) {
	catalog := NewCatalog(newMockCatalogState())
	host := addr(0xFF)
	seller := addr(0x01)
	entry := &CatalogEntry{Seller: seller, Sequence: 0, Object: addr(0x10), Descriptor: "rare token"}

	if err := catalog.AddEntry(host, entry); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := catalog.AddEntry(host, entry); !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("duplicate add: expected ErrDuplicateEntry, got %v", err)
	}

	entries, err := catalog.Entries(host, seller)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Entries: %v (len %d)", err, len(entries))
	}

	if err := catalog.RemoveEntry(host, seller, 0); err != nil {
		t.Fatalf("RemoveEntry: %v", err)
	}
	if err := catalog.RemoveEntry(host, seller, 0); !errors.Is(err, ErrNoSuchEntry) {
		t.Fatalf("missing remove: expected ErrNoSuchEntry, got %v", err)
	}
}
