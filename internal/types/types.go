package types

import (
	"rill/internal/source"
)

// TypeID identifies an interned type descriptor.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

func (id TypeID) IsValid() bool { return id != NoTypeID }

// Kind enumerates the structural categories the lifetime pass cares about.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnit
	KindBool
	KindInt
	KindString
	KindRef    // &T; never needs drop itself
	KindTuple  // (T1, ..., Tn)
	KindArray  // [T; N]
	KindStruct // nominal, front end supplies the drop flag
	KindUnion  // nominal, front end supplies the drop flag
)

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "str"
	case KindRef:
		return "ref"
	case KindTuple:
		return "tuple"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	default:
		return "invalid"
	}
}

// Type is a structural descriptor. The pass only needs shape plus whether
// a destructor must run when a value of the type is discarded.
type Type struct {
	Kind  Kind
	Name  source.StringID // nominal types only
	Elem  TypeID          // ref target / array element
	Count uint32          // array length / tuple arity
	elems uint32          // payload index into the interner's tuple table
	Drop  bool            // destructor required
}

// NeedsDrop reports whether discarding a value of this type runs a
// destructor. References never do; aggregates inherit from elements.
func (t Type) NeedsDrop() bool {
	return t.Drop
}
