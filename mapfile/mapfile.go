// Package mapfile writes the optional human-readable link map
// (spec.md §3's "symbol-name demangling for the optional human-readable
// map file" collaborator, and SPEC_FULL.md §4.11's supplemental
// feature). It is adapted from symtab.Table's address-sorted symbol
// index, narrowed from general lookup-by-address to a one-shot sorted
// dump of everything the layout placed. Tags are printed as they are;
// no demangling is done.
package mapfile

import (
	"fmt"
	"io"
	"sort"

	"github.com/kos-tools/kld/core"
	"github.com/kos-tools/kld/link"
)

// Entry is one placed symbol, ready to print.
type Entry struct {
	Tag  core.Tag
	Kind core.SectionKind
	Addr uint32
	Size int
}

// Build collects every symbol the layout placed into code or data,
// sorted the way symtab.Table orders overlapping symbols: by address,
// then by descending size so an outer symbol sorts before one nested
// inside it.
func Build(l *link.Layout, codeBase, dataBase uint32) []Entry {
	var entries []Entry
	for tag, p := range l.CodePlacements {
		entries = append(entries, Entry{Tag: tag, Kind: core.Code, Addr: codeBase + uint32(p.Offset), Size: p.Size})
	}
	for tag, p := range l.DataPlacements {
		entries = append(entries, Entry{Tag: tag, Kind: core.Data, Addr: dataBase + uint32(p.Offset), Size: p.Size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Addr != entries[j].Addr {
			return entries[i].Addr < entries[j].Addr
		}
		if entries[i].Size != entries[j].Size {
			return entries[i].Size > entries[j].Size
		}
		return entries[i].Tag < entries[j].Tag
	})
	return entries
}

// Write renders entries as a plain-text map: one line per symbol,
// address, size, section kind, and tag.
func Write(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%08x %8d %-4s %s\n", e.Addr, e.Size, e.Kind, e.Tag); err != nil {
			return err
		}
	}
	return nil
}
