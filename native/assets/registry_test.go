package assets

import (
	"errors"
	"testing"

	"github.com/honehone12/token-objects-marketplace/native/fees"
)

type mockState struct {
	objects map[[20]byte]*Object
}

func newMockState() *mockState {
	return &mockState{objects: make(map[[20]byte]*Object)}
}

func (m *mockState) ObjectPut(obj *Object) error {
	m.objects[obj.Address] = obj.Clone()
	return nil
}

func (m *mockState) ObjectGet(addr [20]byte) (*Object, bool, error) {
	obj, ok := m.objects[addr]
	if !ok {
		return nil, false, nil
	}
	return obj.Clone(), true, nil
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestRegisterAndTransfer(t *testing.T) {
	reg := NewRegistry(newMockState())
	object := addr(0x10)
	alice := addr(0x01)
	bob := addr(0x02)

	err := reg.Register(&Object{Address: object, Kind: "Token", Owner: alice})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	owned, err := reg.IsOwner(object, alice)
	if err != nil || !owned {
		t.Fatalf("alice must own object: owned=%v err=%v", owned, err)
	}
	owned, _ = reg.IsOwner(object, bob)
	if owned {
		t.Fatalf("bob must not own object")
	}

	if err := reg.Transfer(object, bob, alice); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("transfer by non-owner: expected ErrNotOwner, got %v", err)
	}
	if err := reg.Transfer(object, alice, bob); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	owned, _ = reg.IsOwner(object, bob)
	if !owned {
		t.Fatalf("bob must own object after transfer")
	}
}

func TestUnknownObject(t *testing.T) {
	reg := NewRegistry(newMockState())
	if _, err := reg.IsOwner(addr(0x99), addr(0x01)); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("expected ErrUnknownObject, got %v", err)
	}
}

func TestRegisterRejectsUnknownKind(t *testing.T) {
	reg := NewRegistry(newMockState())
	err := reg.Register(&Object{Address: addr(0x10), Kind: "parcel", Owner: addr(0x01)})
	if !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestRoyaltyLookup(t *testing.T) {
	reg := NewRegistry(newMockState())
	object := addr(0x10)
	royalty, err := fees.NewFraction(5, 100, addr(0x0A))
	if err != nil {
		t.Fatalf("NewFraction: %v", err)
	}
	if err := reg.Register(&Object{Address: object, Kind: KindToken, Owner: addr(0x01), Royalty: royalty}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, ok, err := reg.Royalty(object)
	if err != nil || !ok {
		t.Fatalf("Royalty: ok=%v err=%v", ok, err)
	}
	if got.Numerator != 5 || got.Denominator != 100 {
		t.Fatalf("unexpected royalty %+v", got)
	}

	bare := addr(0x11)
	if err := reg.Register(&Object{Address: bare, Kind: KindToken, Owner: addr(0x01)}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, ok, err = reg.Royalty(bare)
	if err != nil || ok {
		t.Fatalf("bare object must have no royalty: ok=%v err=%v", ok, err)
	}
}
