package types

import (
	"fmt"
	"hash/fnv"

	"fortio.org/safecast"

	"rill/internal/source"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	Int     TypeID
	String  TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types      []Type
	index      map[typeKey][]TypeID
	builtins   Builtins
	tupleElems [][]TypeID
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey][]TypeID, 64),
	}
	in.tupleElems = append(in.tupleElems, nil) // reserve 0 as invalid sentinel
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := in.keyOf(t)
	for _, id := range in.index[key] {
		if in.equal(in.types[id], t) {
			return id
		}
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	key := in.keyOf(t)
	in.index[key] = append(in.index[key], id)
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// NeedsDrop reports whether values of the type run a destructor when
// discarded. Invalid IDs conservatively report false.
func (in *Interner) NeedsDrop(id TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.NeedsDrop()
}

// MakeRef builds a shared reference descriptor. References are Copy and
// never carry a destructor of their own.
func (in *Interner) MakeRef(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindRef, Elem: elem})
}

// MakeTuple builds a tuple descriptor; it needs drop iff any element does.
func (in *Interner) MakeTuple(elems []TypeID) TypeID {
	drop := false
	for _, e := range elems {
		if in.NeedsDrop(e) {
			drop = true
			break
		}
	}
	count, err := safecast.Conv[uint32](len(elems))
	if err != nil {
		panic(fmt.Errorf("tuple arity overflow: %w", err))
	}
	t := Type{Kind: KindTuple, Count: count, Drop: drop}
	// Structural dedup: compare element lists on hash hits.
	probe := typeKey{Kind: KindTuple, Count: count, Hash: hashElems(elems), Drop: drop}
	for _, id := range in.index[probe] {
		cand := in.types[id]
		if cand.Count == count && in.sameElems(cand.elems, elems) {
			return id
		}
	}
	payload, err := safecast.Conv[uint32](len(in.tupleElems))
	if err != nil {
		panic(fmt.Errorf("tuple table overflow: %w", err))
	}
	in.tupleElems = append(in.tupleElems, append([]TypeID(nil), elems...))
	t.elems = payload
	return in.internRaw(t)
}

// MakeArray builds an array descriptor; it needs drop iff the element does.
func (in *Interner) MakeArray(elem TypeID, count uint32) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem, Count: count, Drop: in.NeedsDrop(elem)})
}

// MakeStruct builds a nominal struct descriptor; the front end decides
// whether the type has a destructor.
func (in *Interner) MakeStruct(name source.StringID, drop bool) TypeID {
	return in.Intern(Type{Kind: KindStruct, Name: name, Drop: drop})
}

// MakeUnion builds a nominal union descriptor.
func (in *Interner) MakeUnion(name source.StringID, drop bool) TypeID {
	return in.Intern(Type{Kind: KindUnion, Name: name, Drop: drop})
}

// TupleElems returns the element list for a tuple type, or nil.
func (in *Interner) TupleElems(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple || tt.elems == 0 {
		return nil
	}
	return in.tupleElems[tt.elems]
}

func (in *Interner) sameElems(payload uint32, elems []TypeID) bool {
	if payload == 0 {
		return len(elems) == 0
	}
	stored := in.tupleElems[payload]
	if len(stored) != len(elems) {
		return false
	}
	for i := range stored {
		if stored[i] != elems[i] {
			return false
		}
	}
	return true
}

func (in *Interner) equal(a, b Type) bool {
	if a.Kind != b.Kind || a.Name != b.Name || a.Elem != b.Elem ||
		a.Count != b.Count || a.Drop != b.Drop {
		return false
	}
	if a.Kind == KindTuple {
		return a.elems == b.elems || in.sameElems(a.elems, in.tupleElems[b.elems])
	}
	return true
}

type typeKey struct {
	Kind  Kind
	Name  source.StringID
	Elem  TypeID
	Count uint32
	Hash  uint32
	Drop  bool
}

func (in *Interner) keyOf(t Type) typeKey {
	key := typeKey{Kind: t.Kind, Name: t.Name, Elem: t.Elem, Count: t.Count, Drop: t.Drop}
	if t.Kind == KindTuple && t.elems != 0 {
		key.Hash = hashElems(in.tupleElems[t.elems])
	}
	return key
}

func hashElems(elems []TypeID) uint32 {
	h := fnv.New32a()
	for _, e := range elems {
		var buf [4]byte
		buf[0] = byte(e)
		buf[1] = byte(e >> 8)
		buf[2] = byte(e >> 16)
		buf[3] = byte(e >> 24)
		_, _ = h.Write(buf[:])
	}
	return h.Sum32()
}
