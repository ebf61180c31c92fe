package objfile

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/kos-tools/kld/arch"
)

const (
	Unsupported RelocKind = 0xff
)

// leLayout decodes the 32-bit little-endian fields of a REL/RELA entry.
// ELF32 objects are always little-endian on the machines kld targets.
var leLayout = arch.NewLayout(binary.LittleEndian, 4)

// Open parses data as an ELF32 little-endian relocatable object file.
// It returns *UnsupportedFormatError for anything else: a different
// magic, a 64-bit or big-endian file, or a non-ET_REL file type. These
// are all things the core's input contract (spec.md §6) rules out.
func Open(data []byte) (*File, error) {
	ef, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, &UnsupportedFormatError{Detail: err.Error()}
	}
	if ef.Class != elf.ELFCLASS32 {
		return nil, &UnsupportedFormatError{Detail: fmt.Sprintf("class %s, want ELFCLASS32", ef.Class)}
	}
	if ef.ByteOrder != binary.LittleEndian {
		return nil, &UnsupportedFormatError{Detail: "not little-endian"}
	}
	if ef.Type != elf.ET_REL {
		return nil, &UnsupportedFormatError{Detail: fmt.Sprintf("type %s, want ET_REL", ef.Type)}
	}

	machine := MachineUnknown
	switch ef.Machine {
	case elf.EM_386:
		machine = Machine386
	case elf.EM_X86_64:
		machine = MachineX86_64
	}

	f := &File{Machine: machine}

	sections := make([]Section, len(ef.Sections))
	for i, es := range ef.Sections {
		sections[i] = Section{
			Name:       es.Name,
			Index:      i,
			Executable: es.Flags&elf.SHF_EXECINSTR != 0,
			Align:      es.Addralign,
			Size:       es.Size,
		}
		if es.Type != elf.SHT_NOBITS && es.Type != elf.SHT_NULL {
			data, err := es.Data()
			if err != nil {
				return nil, fmt.Errorf("reading section %s: %w", es.Name, err)
			}
			sections[i].Data = data
		}
	}

	syms, err := ef.Symbols()
	if err != nil && err != elf.ErrNoSymbols {
		return nil, fmt.Errorf("reading symbols: %w", err)
	}
	// debug/elf omits the null symbol at index 0; put it back so that
	// File.Syms indices match the symbol indices relocations carry.
	f.Syms = make([]Sym, len(syms)+1)
	f.Syms[0] = Sym{Section: -1}
	for i, es := range syms {
		shn := int(es.Section)
		sectionIdx := -1
		if es.Section != elf.SHN_UNDEF && es.Section < elf.SHN_LORESERVE {
			sectionIdx = shn
		}
		bind := elf.ST_BIND(es.Info)
		b := BindLocal
		switch bind {
		case elf.STB_GLOBAL:
			b = BindGlobal
		case elf.STB_WEAK:
			b = BindWeak
		}
		external := elf.ST_TYPE(es.Info) == elf.STT_NOTYPE &&
			es.Section == elf.SHN_UNDEF &&
			es.Name != ""
		f.Syms[i+1] = Sym{
			Name:     es.Name,
			Section:  sectionIdx,
			Value:    es.Value,
			Bind:     b,
			External: external,
		}
	}

	// Decode relocations for each REL/RELA section and attach them to
	// the section they target.
	for _, es := range ef.Sections {
		if es.Type != elf.SHT_REL && es.Type != elf.SHT_RELA {
			continue
		}
		target := int(es.Info)
		if target <= 0 || target >= len(sections) {
			continue
		}
		raw, err := es.Data()
		if err != nil {
			return nil, fmt.Errorf("reading relocation section %s: %w", es.Name, err)
		}
		relocs, err := decodeRelocs(raw, es.Type == elf.SHT_RELA, machine)
		if err != nil {
			return nil, fmt.Errorf("relocation section %s: %w", es.Name, err)
		}
		sections[target].Relocs = append(sections[target].Relocs, relocs...)
	}
	for i := range sections {
		sort.Slice(sections[i].Relocs, func(a, b int) bool {
			return sections[i].Relocs[a].Offset < sections[i].Relocs[b].Offset
		})
	}
	f.Sections = sections

	return f, nil
}

// decodeRelocs decodes a raw SHT_REL or SHT_RELA section's bytes into
// Reloc records, classifying each entry's type into the three kinds
// the linker core understands (or Unsupported).
func decodeRelocs(raw []byte, rela bool, machine Machine) ([]Reloc, error) {
	const entSizeRel, entSizeRela = 8, 12
	entSize := entSizeRel
	if rela {
		entSize = entSizeRela
	}
	if len(raw)%entSize != 0 {
		return nil, fmt.Errorf("relocation section size %d not a multiple of entry size %d", len(raw), entSize)
	}
	n := len(raw) / entSize
	out := make([]Reloc, n)
	for i := 0; i < n; i++ {
		ent := raw[i*entSize:]
		off := leLayout.Uint32(ent[0:4])
		info := leLayout.Uint32(ent[4:8])
		symIdx := int(elf.R_SYM32(info))
		typ := elf.R_TYPE32(info)

		kind, widthBits := classifyReloc(machine, typ)
		out[i] = Reloc{
			Offset:    uint64(off),
			Sym:       symIdx,
			Kind:      kind,
			WidthBits: widthBits,
		}
	}
	return out, nil
}

// classifyReloc maps a raw ELF relocation type number to the three
// kinds spec.md §4.4 recognizes, per machine. Anything else is
// Unsupported and is the analyzer's job to reject as
// UnsupportedRelocKind.
func classifyReloc(machine Machine, typ uint32) (RelocKind, int) {
	switch machine {
	case Machine386:
		switch elf.R_386(typ) {
		case elf.R_386_32:
			return Absolute, 32
		case elf.R_386_PC32:
			return Relative, 32
		case elf.R_386_PLT32:
			return PltRelative, 32
		}
	case MachineX86_64:
		switch elf.R_X86_64(typ) {
		case elf.R_X86_64_32, elf.R_X86_64_32S:
			return Absolute, 32
		case elf.R_X86_64_PC32:
			return Relative, 32
		case elf.R_X86_64_PLT32:
			return PltRelative, 32
		}
	}
	return Unsupported, 0
}
