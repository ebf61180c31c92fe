// Package objfile provides the typed view of an ELF32 relocatable
// object file that the linker's analyzer consumes: sections, symbols,
// and per-section relocations, with ELF's byte-level representation
// already decoded. It is generalized from github.com/aclements/go-obj's
// obj package, narrowed to exactly what a MENUET01 link needs: ELF32,
// little-endian, REL/RELA relocations for the i386 and x86-64 machine
// types, read once into memory rather than mmapped.
package objfile

import (
	"fmt"

	"github.com/kos-tools/kld/arch"
)

// RelocKind is the ELF relocation arithmetic, before the analyzer
// collapses PltRelative onto Relative (spec.md §4.4).
type RelocKind uint8

const (
	Absolute RelocKind = iota
	Relative
	PltRelative
)

// A Reloc is a single decoded relocation record from a section's
// REL/RELA companion section. It carries no addend: the analyzer only
// cares about target symbol, offset, width and kind, and the relocator
// reads the implicit addend straight out of the section bytes. The
// explicit addend field of a RELA entry is not read.
type Reloc struct {
	// Offset is the byte offset within the owning section where the
	// fixup applies.
	Offset uint64
	// Sym is the index into File.Syms of the relocation's target symbol.
	Sym int
	Kind RelocKind
	// WidthBits is the ELF-reported width of the relocation in bits.
	// Only 32 is supported; anything else is a fatal
	// UnsupportedRelocWidth error raised by the analyzer.
	WidthBits int
}

// A Section is a contiguous named byte region of an object file.
type Section struct {
	Name string
	// Index is this section's ELF section number.
	Index int
	// Executable is true iff SHF_EXECINSTR is set.
	Executable bool
	Align      uint64
	// Size is the section's declared size; it may exceed len(Data) for
	// SHT_NOBITS (BSS) sections, which carry no file content.
	Size uint64
	Data []byte
	// Relocs are the relocations that apply to this section, decoded
	// from its REL/RELA companion section (if any), sorted by Offset.
	Relocs []Reloc
}

// A Sym is a symbol from an object file's (static) symbol table.
type Sym struct {
	Name string
	// Section is the index into File.Sections this symbol is defined
	// in, or -1 if the symbol has no section (undefined, absolute, or
	// common).
	Section int
	// Value is the symbol's value: for a defined symbol this is its
	// byte offset within Section.
	Value uint64
	Bind  Binding
	// External is true iff the symbol is of type STT_NOTYPE, has
	// section index SHN_UNDEF, and has a name — spec.md §4.4's
	// definition of "external".
	External bool
}

// Binding is an ELF symbol's st_info binding.
type Binding uint8

const (
	BindLocal Binding = iota
	BindGlobal
	BindWeak
)

// A File is a parsed ELF32 relocatable object file.
type File struct {
	Sections []Section
	Syms     []Sym
	// Machine identifies the target machine. It selects the relocation
	// decode table and, through Arch, names the architecture in logs.
	Machine Machine
}

// Machine is the subset of ELF e_machine values kld understands.
type Machine uint8

const (
	MachineUnknown Machine = iota
	Machine386
	MachineX86_64
)

// Arch returns the arch.Arch describing m's byte order and word size,
// or nil for MachineUnknown. Open and the relocation decoder in elf.go
// accept both Machine386 and MachineX86_64 objects, mapping each
// machine's own relocation type numbers onto the same three kinds.
func (m Machine) Arch() *arch.Arch {
	switch m {
	case Machine386:
		return arch.I386
	case MachineX86_64:
		return arch.AMD64
	default:
		return nil
	}
}

// UnsupportedFormatError reports that a byte blob could not be parsed
// as an ELF32 little-endian relocatable object.
type UnsupportedFormatError struct {
	Detail string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported object format: %s", e.Detail)
}
