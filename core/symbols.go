package core

import "fmt"

// Binding is a symbol's ELF binding, classified per §4.4: STB_LOCAL,
// STB_GLOBAL, and STB_WEAK map directly onto Local, Global, and Weak.
type Binding uint8

const (
	Local Binding = iota
	Global
	Weak
)

func (b Binding) String() string {
	switch b {
	case Global:
		return "global"
	case Weak:
		return "weak"
	default:
		return "local"
	}
}

// A Resolved symbol entry gives the placement a reference eventually
// needs: which section it lives in, its byte offset within that
// section's payload, and the binding it was defined with (needed to
// decide global-overrides-weak on a later definition).
type Resolved struct {
	Section SectionID
	Offset  int
	Binding Binding
}

// entry is the internal representation of a symbol table slot: either
// unresolved (referenced but not yet, or never, defined) or resolved.
type entry struct {
	resolved bool
	r        Resolved
}

// A MultipleDefinitionError reports two non-weak definitions of the
// same tag, the condition spec.md §7 calls MultipleDefinition.
type MultipleDefinitionError struct {
	Tag Tag
}

func (e *MultipleDefinitionError) Error() string {
	return fmt.Sprintf("multiple definition of symbol %q", e.Tag)
}

// Symbols is the global tag-to-definition map built by the analyzer
// (§4.3). It is exclusively owned by the analyzer until analysis
// returns, after which every other stage only reads it.
type Symbols struct {
	byTag map[Tag]*entry
}

// NewSymbols returns an empty symbol table.
func NewSymbols() *Symbols {
	return &Symbols{byTag: make(map[Tag]*entry)}
}

// Reference records that tag was referenced, creating an Unresolved
// entry if tag is not yet present. It is idempotent.
func (s *Symbols) Reference(tag Tag) {
	if _, ok := s.byTag[tag]; !ok {
		s.byTag[tag] = &entry{}
	}
}

// Define records a resolved definition for tag. It fails with
// MultipleDefinitionError when the existing entry is already Resolved
// with a non-weak binding and r is also non-weak (invariant §3.4). If
// the existing entry is Resolved(Weak) and r is non-weak, r silently
// overrides it — the global-overrides-weak rule of §4.4/S4. If the
// existing entry is Resolved(non-weak) and r is Weak, the existing
// definition is kept and Define succeeds without changing it.
func (s *Symbols) Define(tag Tag, r Resolved) error {
	e, ok := s.byTag[tag]
	if !ok {
		e = &entry{}
		s.byTag[tag] = e
	}
	if !e.resolved {
		e.resolved = true
		e.r = r
		return nil
	}
	switch {
	case e.r.Binding != Weak && r.Binding != Weak:
		return &MultipleDefinitionError{Tag: tag}
	case e.r.Binding == Weak && r.Binding != Weak:
		e.r = r
	}
	return nil
}

// Get returns the resolved definition for tag and whether it is
// currently resolved. A present-but-unresolved tag (referenced but
// never defined) returns ok == false, matching spec.md §3 invariant 5.
func (s *Symbols) Get(tag Tag) (Resolved, bool) {
	e, ok := s.byTag[tag]
	if !ok || !e.resolved {
		return Resolved{}, false
	}
	return e.r, true
}

// Has reports whether tag has any entry at all, resolved or not.
func (s *Symbols) Has(tag Tag) bool {
	_, ok := s.byTag[tag]
	return ok
}
