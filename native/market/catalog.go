package market

import (
	"errors"
	"fmt"
)

var (
	ErrNilState       = errors.New("market: state not configured")
	ErrDuplicateEntry = errors.New("market: catalog entry already exists")
	ErrNoSuchEntry    = errors.New("market: catalog entry not found")
)

// CatalogEntry is the display descriptor recorded for one listing. It is
// browsing metadata only and has no settlement effect.
type CatalogEntry struct {
	Seller     [20]byte
	Sequence   uint64
	Object     [20]byte
	Descriptor string
}

// Clone returns a copy callers can mutate freely.
func (e *CatalogEntry) Clone() *CatalogEntry {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// CatalogState is the keyed store backing the display catalog.
type CatalogState interface {
	CatalogPut(host [20]byte, entry *CatalogEntry) error
	CatalogGet(host, seller [20]byte, sequence uint64) (*CatalogEntry, bool, error)
	CatalogDelete(host, seller [20]byte, sequence uint64) error
	CatalogList(host, seller [20]byte) ([]*CatalogEntry, error)
}

// Catalog is the per-host browsing index of active listings.
type Catalog struct {
	state CatalogState
}

// NewCatalog creates a catalog over the supplied state.
func NewCatalog(state CatalogState) *Catalog {
	return &Catalog{state: state}
}

// AddEntry records a display descriptor. Adding a duplicate is a user
// error, not a settlement error.
func (c *Catalog) AddEntry(host [20]byte, entry *CatalogEntry) error {
	if c == nil || c.state == nil {
		return ErrNilState
	}
	if entry == nil {
		return fmt.Errorf("market: nil catalog entry")
	}
	_, ok, err := c.state.CatalogGet(host, entry.Seller, entry.Sequence)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: seller %x sequence %d", ErrDuplicateEntry, entry.Seller, entry.Sequence)
	}
	return c.state.CatalogPut(host, entry.Clone())
}

// RemoveEntry drops a display descriptor. Removing a missing entry is a
// user error.
func (c *Catalog) RemoveEntry(host, seller [20]byte, sequence uint64) error {
	if c == nil || c.state == nil {
		return ErrNilState
	}
	_, ok, err := c.state.CatalogGet(host, seller, sequence)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: seller %x sequence %d", ErrNoSuchEntry, seller, sequence)
	}
	return c.state.CatalogDelete(host, seller, sequence)
}

// Entries lists the display descriptors recorded for one seller.
func (c *Catalog) Entries(host, seller [20]byte) ([]*CatalogEntry, error) {
	if c == nil || c.state == nil {
		return nil, ErrNilState
	}
	return c.state.CatalogList(host, seller)
}
