package core

import "fmt"

// A Tag is the string identity under which the symbol table and the
// section-id cache key an entry. Tags are unique across the whole link
// unit by construction: see LocalTag and GlobalTag.
type Tag string

// GlobalTag returns the tag for an externally visible (global or weak)
// symbol: simply its ELF name. Two objects that both define a global
// tag of the same name collide, which is exactly the MultipleDefinition
// condition §4.4 detects.
func GlobalTag(name string) Tag {
	return Tag(name)
}

// LocalTag returns the tag for a file-local symbol or for a same-object
// section-relative reference. archive is the owning archive's name, or
// "." for a plain object file argument. The composite key guarantees
// two local symbols with the same name in different objects never
// collide, because object and archive identity are baked into the tag.
func LocalTag(archive, object string, sectionIndex int, name string) Tag {
	if archive == "" {
		archive = "."
	}
	return Tag(fmt.Sprintf("%s/%s/%d/%s", archive, object, sectionIndex, name))
}

// SectionKey returns the cache key the analyzer uses to remember which
// SectionID a given (archive, object, section-index) triple was
// already registered under. It is deliberately distinct from Tag: a
// section can be materialized before any symbol names it, and several
// symbol tags may all resolve to the same section.
func SectionKey(archive, object string, sectionIndex int) Tag {
	return LocalTag(archive, object, sectionIndex, "")
}
