package objfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildELF32 assembles a minimal ELF32 little-endian ET_REL i386
// object with one code section, one symbol table, and a string table,
// by hand: the example pack has no ELF writer, and the point of this
// helper is only to exercise Open's decode path, not to be a general
// assembler. Section layout is fixed: 0 NULL, 1 .text, 2 .symtab,
// 3 .strtab, 4 .shstrtab, and, if haveReloc, 5 .rel.text.
type elf32Sym struct {
	name        string
	value, size uint32
	bind, typ   uint8
	shndx       uint16
}

func buildELF32(t *testing.T, code []byte, syms []elf32Sym, relocOffset, relocSym, relocType uint32, haveReloc bool) []byte {
	t.Helper()

	const ehsize = 52
	const shentsize = 40

	var strtab bytes.Buffer
	strtab.WriteByte(0)
	nameOff := make([]uint32, len(syms))
	for i, s := range syms {
		nameOff[i] = uint32(strtab.Len())
		strtab.WriteString(s.name)
		strtab.WriteByte(0)
	}

	shstrtab := []byte("\x00.text\x00.symtab\x00.strtab\x00.shstrtab\x00.rel.text\x00")
	shstrIndex := func(name string) uint32 {
		idx := bytes.Index(shstrtab, []byte(name+"\x00"))
		require.GreaterOrEqual(t, idx, 0)
		return uint32(idx)
	}

	var symtab bytes.Buffer
	writeSym := func(nameOff, value, size uint32, info uint8, shndx uint16) {
		binary.Write(&symtab, binary.LittleEndian, nameOff)
		binary.Write(&symtab, binary.LittleEndian, value)
		binary.Write(&symtab, binary.LittleEndian, size)
		symtab.WriteByte(info)
		symtab.WriteByte(0)
		binary.Write(&symtab, binary.LittleEndian, shndx)
	}
	writeSym(0, 0, 0, 0, 0) // null symbol
	for i, s := range syms {
		info := s.bind<<4 | s.typ
		writeSym(nameOff[i], s.value, s.size, info, s.shndx)
	}

	var reltab bytes.Buffer
	if haveReloc {
		info := relocSym<<8 | relocType
		binary.Write(&reltab, binary.LittleEndian, relocOffset)
		binary.Write(&reltab, binary.LittleEndian, info)
	}

	// Lay out file content after the ELF header.
	textOff := uint32(ehsize)
	strtabOff := textOff + uint32(len(code))
	symtabOff := strtabOff + uint32(strtab.Len())
	shstrOff := symtabOff + uint32(symtab.Len())
	relOff := shstrOff + uint32(len(shstrtab))
	shOff := relOff + uint32(reltab.Len())

	nsec := 5
	if haveReloc {
		nsec = 6
	}

	var f bytes.Buffer
	f.Write([]byte{0x7f, 'E', 'L', 'F', 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}) // e_ident
	binary.Write(&f, binary.LittleEndian, uint16(1))                        // e_type = ET_REL
	binary.Write(&f, binary.LittleEndian, uint16(3))                        // e_machine = EM_386
	binary.Write(&f, binary.LittleEndian, uint32(1))                        // e_version
	binary.Write(&f, binary.LittleEndian, uint32(0))                        // e_entry
	binary.Write(&f, binary.LittleEndian, uint32(0))                        // e_phoff
	binary.Write(&f, binary.LittleEndian, shOff)                            // e_shoff
	binary.Write(&f, binary.LittleEndian, uint32(0))                        // e_flags
	binary.Write(&f, binary.LittleEndian, uint16(ehsize))
	binary.Write(&f, binary.LittleEndian, uint16(0)) // e_phentsize
	binary.Write(&f, binary.LittleEndian, uint16(0)) // e_phnum
	binary.Write(&f, binary.LittleEndian, uint16(shentsize))
	binary.Write(&f, binary.LittleEndian, uint16(nsec))
	binary.Write(&f, binary.LittleEndian, uint16(4)) // e_shstrndx: .shstrtab is section 4
	require.Equal(t, ehsize, f.Len())

	f.Write(code)
	f.Write(strtab.Bytes())
	f.Write(symtab.Bytes())
	f.Write(shstrtab)
	if haveReloc {
		f.Write(reltab.Bytes())
	}

	writeShdr := func(name uint32, typ, flags, addr, offset, size, link, info, align, entsize uint32) {
		binary.Write(&f, binary.LittleEndian, name)
		binary.Write(&f, binary.LittleEndian, typ)
		binary.Write(&f, binary.LittleEndian, flags)
		binary.Write(&f, binary.LittleEndian, addr)
		binary.Write(&f, binary.LittleEndian, offset)
		binary.Write(&f, binary.LittleEndian, size)
		binary.Write(&f, binary.LittleEndian, link)
		binary.Write(&f, binary.LittleEndian, info)
		binary.Write(&f, binary.LittleEndian, align)
		binary.Write(&f, binary.LittleEndian, entsize)
	}

	const (
		shtNull     = 0
		shtProgbits = 1
		shtSymtab   = 2
		shtStrtab   = 3
		shtRel      = 9
		shfAlloc    = 2
		shfExec     = 4
	)

	// index 0: NULL
	writeShdr(0, shtNull, 0, 0, 0, 0, 0, 0, 0, 0)
	// index 1: .text
	writeShdr(shstrIndex(".text"), shtProgbits, shfAlloc|shfExec, 0, textOff, uint32(len(code)), 0, 0, 1, 0)
	// index 2: .symtab, linked to .strtab (index 3)
	writeShdr(shstrIndex(".symtab"), shtSymtab, 0, 0, symtabOff, uint32(symtab.Len()), 3, 1, 4, 16)
	// index 3: .strtab
	writeShdr(shstrIndex(".strtab"), shtStrtab, 0, 0, strtabOff, uint32(strtab.Len()), 0, 0, 1, 0)
	// index 4: .shstrtab
	writeShdr(shstrIndex(".shstrtab"), shtStrtab, 0, 0, shstrOff, uint32(len(shstrtab)), 0, 0, 1, 0)

	if haveReloc {
		// index 5: .rel.text, linked to .symtab (index 2), targets .text (index 1)
		writeShdr(shstrIndex(".rel.text"), shtRel, 0, 0, relOff, uint32(reltab.Len()), 2, 1, 4, 8)
	}

	return f.Bytes()
}

func TestOpenHelloWorld(t *testing.T) {
	// S1: one object defines _start, 5 bytes, no relocations.
	code := []byte{0xB8, 0x01, 0x00, 0x00, 0x00}
	data := buildELF32(t, code, []elf32Sym{
		{name: "_start", value: 0, size: 0, bind: 1 /* STB_GLOBAL */, typ: 0, shndx: 1},
	}, 0, 0, 0, false)

	f, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, Machine386, f.Machine)
	require.Len(t, f.Sections, 5)
	assert.Equal(t, ".text", f.Sections[1].Name)
	assert.Equal(t, code, f.Sections[1].Data)
	assert.True(t, f.Sections[1].Executable)

	var start *Sym
	for i := range f.Syms {
		if f.Syms[i].Name == "_start" {
			start = &f.Syms[i]
		}
	}
	require.NotNil(t, start)
	assert.Equal(t, 1, start.Section)
	assert.Equal(t, BindGlobal, start.Bind)
}

func TestOpenDecodesRelocation(t *testing.T) {
	// S2-shaped: code section with one R_386_32 relocation at offset 1
	// targeting symbol index 2 ("msg").
	code := make([]byte, 10)
	data := buildELF32(t, code, []elf32Sym{
		{name: "_start", bind: 1, shndx: 1},
		{name: "msg", bind: 1, shndx: 0 /* SHN_UNDEF: defined elsewhere */},
	}, 1, 2, 1 /* R_386_32 */, true)

	f, err := Open(data)
	require.NoError(t, err)
	require.Len(t, f.Sections[1].Relocs, 1)
	r := f.Sections[1].Relocs[0]
	assert.Equal(t, uint64(1), r.Offset)
	assert.Equal(t, Absolute, r.Kind)
	assert.Equal(t, 32, r.WidthBits)
	assert.Equal(t, "msg", f.Syms[r.Sym].Name)
}

func TestOpenRejectsNonELF(t *testing.T) {
	_, err := Open([]byte("not an elf file"))
	var uf *UnsupportedFormatError
	assert.ErrorAs(t, err, &uf)
}
