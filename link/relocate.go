package link

import (
	"encoding/binary"

	"github.com/kos-tools/kld/arch"
	"github.com/kos-tools/kld/core"
)

// layout is the byte order and word size every relocation patch site
// is read and written in: ELF32 little-endian, the only format kld's
// target ABI uses.
var layout = arch.NewLayout(binary.LittleEndian, 4)

// Relocate patches l.Code and l.Data in place, using codeBase and
// dataBase as the absolute (file-offset) addresses the two buffers
// will live at in the final image (spec.md §4.6). It mutates l's
// buffers and returns the first fatal error encountered, if any.
func Relocate(l *Layout, sections *core.Sections, symbols *core.Symbols, codeBase, dataBase uint32) error {
	if err := relocateMap(l, l.CodePlacements, l.Code, codeBase, sections, symbols, codeBase, dataBase); err != nil {
		return err
	}
	return relocateMap(l, l.DataPlacements, l.Data, dataBase, sections, symbols, codeBase, dataBase)
}

// relocateMap patches buf, the buffer holding the sections placed in
// placements, which lives at file offset ownerBase. codeBase and
// dataBase are needed regardless of which buffer this call is
// patching, since a relocation's target may live in the other buffer.
func relocateMap(
	l *Layout,
	placements map[core.Tag]Placement,
	buf []byte,
	ownerBase uint32,
	sections *core.Sections,
	symbols *core.Symbols,
	codeBase, dataBase uint32,
) error {
	for tag, p := range placements {
		resolved, ok := symbols.Get(tag)
		if !ok {
			continue
		}
		sec := sections.Get(resolved.Section)
		for _, r := range sec.Relocs {
			if r.Width != 4 {
				return &UnsupportedRelocWidthError{Object: sec.Source, WidthBits: r.Width * 8}
			}

			target, ok := symbols.Get(r.Target)
			if !ok {
				return &DanglingReferenceError{Object: sec.Source, Target: string(r.Target)}
			}
			targetSec := sections.Get(target.Section)

			targetMap, targetBase := l.DataPlacements, dataBase
			if targetSec.Kind == core.Code {
				targetMap, targetBase = l.CodePlacements, codeBase
			}
			targetPlacement, ok := targetMap[r.Target]
			if !ok {
				// The target symbol is resolved but its section was
				// never reached from _start: nothing in the closure
				// points at it, so there's nowhere to patch. Treat it
				// the same as a dangling reference.
				return &DanglingReferenceError{Object: sec.Source, Target: string(r.Target)}
			}

			a := targetBase + uint32(targetPlacement.Offset) + uint32(target.Offset)
			site := p.Offset + r.Offset
			patchAddr := ownerBase + uint32(site)

			switch r.Kind {
			case core.Absolute:
				addend := layout.Uint32(buf[site : site+4])
				layout.Order().PutUint32(buf[site:site+4], a+addend)
			case core.Relative:
				layout.Order().PutUint32(buf[site:site+4], a-(patchAddr+4))
			}
		}
	}
	return nil
}
