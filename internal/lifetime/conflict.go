package lifetime

import (
	"fmt"
	"hash/fnv"

	"rill/internal/source"
)

// Conflict is one proven lifetime violation: a borrow of a temporary used
// after the temporary's drop point. Immutable once created.
type Conflict struct {
	Temp   TempID
	Borrow BorrowID

	// Created underlines the temporary-producing expression.
	Created source.Span
	// Freed is the zero-width drop point at the end of the drop scope.
	Freed source.Span
	// Used is the first escaping use of the borrow.
	Used source.Span
}

// Fingerprint is a stable identifier for deduplication and suppression.
// Equal inputs always produce equal fingerprints.
func (c Conflict) Fingerprint() string {
	h := fnv.New64a()
	for _, sp := range []source.Span{c.Created, c.Freed, c.Used} {
		var buf [12]byte
		put32(buf[0:], uint32(sp.File))
		put32(buf[4:], sp.Start)
		put32(buf[8:], sp.End)
		_, _ = h.Write(buf[:])
	}
	return fmt.Sprintf("lif-%016x", h.Sum64())
}

func put32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
