package ast

import (
	"rill/internal/source"
)

// GateUse records one use of an unstable language construct inside a
// unit. The feature-gate pass matches these against the manifest
// allow-list; the lifetime core never reads them.
type GateUse struct {
	Feature source.StringID
	Span    source.Span
}

// Unit is one function-like body: the granularity at which analysis runs.
type Unit struct {
	Name  source.StringID
	Span  source.Span
	File  source.FileID
	Body  ExprID // ExprBlock; NoExprID for bodiless declarations
	Gates []GateUse
}

type Units struct {
	Arena *Arena[Unit]
}

func NewUnits(capHint uint) *Units {
	return &Units{
		Arena: NewArena[Unit](capHint),
	}
}

func (u *Units) Get(id UnitID) *Unit {
	return u.Arena.Get(uint32(id))
}

// New registers a unit and returns its ID.
func (u *Units) New(name source.StringID, span source.Span, file source.FileID, body ExprID) UnitID {
	return UnitID(u.Arena.Allocate(Unit{Name: name, Span: span, File: file, Body: body}))
}

// AddGate attaches a gate use to the unit.
func (u *Units) AddGate(id UnitID, feature source.StringID, span source.Span) {
	unit := u.Get(id)
	if unit == nil {
		return
	}
	unit.Gates = append(unit.Gates, GateUse{Feature: feature, Span: span})
}
