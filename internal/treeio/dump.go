// Package treeio decodes typed-tree dumps produced by the front end.
// A dump is one JSON document per source file carrying the source text,
// the type table and the arena-ordered statement and expression nodes.
package treeio

// Wire layout of a *.ast.json dump. Node IDs are 1-based and must be
// dense: the n-th entry of an array carries id n. Type entries may only
// reference earlier entries; expression and statement entries may
// reference each other freely and are validated after loading.
type dumpFile struct {
	Version int        `json:"version"`
	Path    string     `json:"path"`
	Source  string     `json:"source"`
	Types   []dumpType `json:"types"`
	Exprs   []dumpExpr `json:"exprs"`
	Stmts   []dumpStmt `json:"stmts"`
	Units   []dumpUnit `json:"units"`
}

const dumpVersion = 1

type dumpSpan [2]uint32

type dumpType struct {
	ID    uint32   `json:"id"`
	Kind  string   `json:"kind"`
	Name  string   `json:"name,omitempty"`
	Elem  uint32   `json:"elem,omitempty"`
	Elems []uint32 `json:"elems,omitempty"`
	Count uint32   `json:"count,omitempty"`
	Drop  bool     `json:"drop,omitempty"`
}

type dumpExpr struct {
	ID   uint32   `json:"id"`
	Kind string   `json:"kind"`
	Span dumpSpan `json:"span"`
	Type uint32   `json:"type,omitempty"`
	Name string   `json:"name,omitempty"`

	// X carries the operand, callee, base, condition, scrutinee, block
	// tail or assignment target depending on the kind; Y the index or
	// assigned value.
	X     uint32   `json:"x,omitempty"`
	Y     uint32   `json:"y,omitempty"`
	List  []uint32 `json:"list,omitempty"`
	Stmts []uint32 `json:"stmts,omitempty"`
}

type dumpStmt struct {
	ID   uint32   `json:"id"`
	Kind string   `json:"kind"`
	Span dumpSpan `json:"span"`
	Name string   `json:"name,omitempty"`
	Ref  bool     `json:"ref,omitempty"`
	X    uint32   `json:"x,omitempty"`
}

type dumpUnit struct {
	Name  string     `json:"name"`
	Span  dumpSpan   `json:"span"`
	Body  uint32     `json:"body,omitempty"`
	Gates []dumpGate `json:"gates,omitempty"`
}

type dumpGate struct {
	Feature string   `json:"feature"`
	Span    dumpSpan `json:"span"`
}
