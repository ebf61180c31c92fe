// Package core implements the linker's identity and table primitives:
// a monotonic id generator, a section table keyed by id, and a symbol
// table keyed by tag. These three types are the only shared mutable
// state of a link run; every other component treats them as read-only
// once the analyzer returns.
package core

// A SectionID is an opaque handle minted by an Idents generator. It
// identifies an entry in a Sections table and is never reused or
// rehashed.
type SectionID uint32

// An Idents mints fresh, monotonically increasing SectionIDs for the
// duration of a single link run. The zero value is ready to use.
type Idents struct {
	next SectionID
}

// Next returns a fresh SectionID, distinct from every id previously
// returned by id.
func (id *Idents) Next() SectionID {
	v := id.next
	id.next++
	return v
}
