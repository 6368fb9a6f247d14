package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/honehone12/token-objects-marketplace/native/fees"
)

var (
	ErrNilState      = errors.New("assets: state not configured")
	ErrUnknownObject = errors.New("assets: unknown object")
	ErrNotOwner      = errors.New("assets: account is not the owner")
	ErrInvalidKind   = errors.New("assets: unsupported object kind")
)

// Object kinds recognised by the marketplace.
const (
	KindToken       = "token"
	KindCollectible = "collectible"
)

// Object is a uniquely owned digital item tracked by the registry. The
// royalty fraction, when configured, is paid out of every settlement that
// transfers the object.
type Object struct {
	Address [20]byte
	Kind    string
	Owner   [20]byte
	Royalty fees.Fraction
}

// Clone returns a copy callers can mutate freely.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}

// NormalizeKind canonicalises an object kind tag.
func NormalizeKind(kind string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(kind))
	switch trimmed {
	case KindToken, KindCollectible:
		return trimmed, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidKind, kind)
	}
}

// State is the object storage backing the registry.
type State interface {
	ObjectPut(*Object) error
	ObjectGet(addr [20]byte) (*Object, bool, error)
}

// Registry answers ownership queries and performs owner transfers. It is
// the marketplace's only view of the underlying asset system.
type Registry struct {
	state State
}

// NewRegistry creates a registry over the supplied object state.
func NewRegistry(state State) *Registry {
	return &Registry{state: state}
}

// Register stores a new object definition. Used at bootstrap and by tests.
func (r *Registry) Register(obj *Object) error {
	if r == nil || r.state == nil {
		return ErrNilState
	}
	if obj == nil {
		return fmt.Errorf("assets: nil object")
	}
	kind, err := NormalizeKind(obj.Kind)
	if err != nil {
		return err
	}
	clone := obj.Clone()
	clone.Kind = kind
	return r.state.ObjectPut(clone)
}

// Get loads an object registration by address.
func (r *Registry) Get(object [20]byte) (*Object, bool, error) {
	if r == nil || r.state == nil {
		return nil, false, ErrNilState
	}
	return r.state.ObjectGet(object)
}

// IsOwner reports whether account currently owns the object.
func (r *Registry) IsOwner(object, account [20]byte) (bool, error) {
	obj, err := r.lookup(object)
	if err != nil {
		return false, err
	}
	return obj.Owner == account, nil
}

// Transfer moves ownership of the object from from to to. Fails with
// ErrNotOwner if from does not currently own it.
func (r *Registry) Transfer(object, from, to [20]byte) error {
	obj, err := r.lookup(object)
	if err != nil {
		return err
	}
	if obj.Owner != from {
		return fmt.Errorf("%w: transfer of %x", ErrNotOwner, object)
	}
	obj.Owner = to
	return r.state.ObjectPut(obj)
}

// Royalty returns the object's royalty record if one is configured.
func (r *Registry) Royalty(object [20]byte) (fees.Fraction, bool, error) {
	obj, err := r.lookup(object)
	if err != nil {
		return fees.NoFee, false, err
	}
	if !obj.Royalty.Applies() {
		return fees.NoFee, false, nil
	}
	return obj.Royalty, true, nil
}

func (r *Registry) lookup(object [20]byte) (*Object, error) {
	if r == nil || r.state == nil {
		return nil, ErrNilState
	}
	obj, ok, err := r.state.ObjectGet(object)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrUnknownObject, object)
	}
	return obj, nil
}
