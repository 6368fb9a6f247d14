package state

import (
	"fmt"

	"github.com/honehone12/token-objects-marketplace/native/market"
)

type storedCatalogEntry struct {
	Seller     [20]byte
	Sequence   uint64
	Object     [20]byte
	Descriptor string
}

// CatalogPut records a display descriptor and adds its sequence to the
// per-seller catalog index.
func (m *Manager) CatalogPut(host [20]byte, entry *market.CatalogEntry) error {
	if entry == nil {
		return fmt.Errorf("state: nil catalog entry")
	}
	clone := entry.Clone()
	if err := m.kvPut(catalogKey(host, clone.Seller, clone.Sequence), &storedCatalogEntry{
		Seller:     clone.Seller,
		Sequence:   clone.Sequence,
		Object:     clone.Object,
		Descriptor: clone.Descriptor,
	}); err != nil {
		return err
	}
	sequences, err := m.catalogSequences(host, clone.Seller)
	if err != nil {
		return err
	}
	for _, seq := range sequences {
		if seq == clone.Sequence {
			return nil
		}
	}
	sequences = append(sequences, clone.Sequence)
	return m.kvPut(catalogIndexKey(host, clone.Seller), sequences)
}

// CatalogGet loads one display descriptor.
func (m *Manager) CatalogGet(host, seller [20]byte, sequence uint64) (*market.CatalogEntry, bool, error) {
	var stored storedCatalogEntry
	ok, err := m.kvGet(catalogKey(host, seller, sequence), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &market.CatalogEntry{
		Seller:     stored.Seller,
		Sequence:   stored.Sequence,
		Object:     stored.Object,
		Descriptor: stored.Descriptor,
	}, true, nil
}

// CatalogDelete drops a display descriptor and its index reference.
func (m *Manager) CatalogDelete(host, seller [20]byte, sequence uint64) error {
	if err := m.kvDelete(catalogKey(host, seller, sequence)); err != nil {
		return err
	}
	sequences, err := m.catalogSequences(host, seller)
	if err != nil {
		return err
	}
	filtered := sequences[:0]
	for _, seq := range sequences {
		if seq != sequence {
			filtered = append(filtered, seq)
		}
	}
	return m.kvPut(catalogIndexKey(host, seller), filtered)
}

// CatalogList returns every display descriptor recorded for one seller, in
// insertion order.
func (m *Manager) CatalogList(host, seller [20]byte) ([]*market.CatalogEntry, error) {
	sequences, err := m.catalogSequences(host, seller)
	if err != nil {
		return nil, err
	}
	entries := make([]*market.CatalogEntry, 0, len(sequences))
	for _, seq := range sequences {
		entry, ok, err := m.CatalogGet(host, seller, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("state: catalog index references missing entry %x/%d", seller, seq)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *Manager) catalogSequences(host, seller [20]byte) ([]uint64, error) {
	var sequences []uint64
	if _, err := m.kvGet(catalogIndexKey(host, seller), &sequences); err != nil {
		return nil, err
	}
	return sequences, nil
}
