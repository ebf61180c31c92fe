package link

import "github.com/kos-tools/kld/core"

// EntryPoint is the symbol tag the layout engine starts its
// reachability walk from.
const EntryPoint = core.Tag("_start")

const (
	codePad = 0x90 // NOP on x86: benign if control ever strays into padding
	dataPad = 0x00 // preserves BSS semantics
)

// A Placement records where a symbol's defining section landed in one
// of the two output buffers: its byte offset and the section's
// declared size.
type Placement struct {
	Offset int
	Size   int
}

// Layout is the result of the breadth-first closure over the symbol
// reference graph starting at EntryPoint (spec.md §4.5).
type Layout struct {
	Code, Data     []byte
	CodePlacements map[core.Tag]Placement
	DataPlacements map[core.Tag]Placement
}

// RunLayout walks the transitive reference closure of EntryPoint,
// copying each reachable section's payload into the code or data
// buffer in breadth-first discovery order. A tag absent from the
// closure contributes zero bytes to either buffer and does not appear
// in either placement map (spec.md §8 property 3).
func RunLayout(sections *core.Sections, symbols *core.Symbols) (*Layout, error) {
	if _, ok := symbols.Get(EntryPoint); !ok {
		return nil, &MissingEntryPointError{}
	}

	l := &Layout{
		CodePlacements: make(map[core.Tag]Placement),
		DataPlacements: make(map[core.Tag]Placement),
	}

	queue := []core.Tag{EntryPoint}
	for len(queue) > 0 {
		tag := queue[0]
		queue = queue[1:]

		if _, ok := l.CodePlacements[tag]; ok {
			continue
		}
		if _, ok := l.DataPlacements[tag]; ok {
			continue
		}

		r, ok := symbols.Get(tag)
		if !ok {
			// An unresolved reference that was enqueued by some
			// relocation; it contributes nothing to layout. The
			// relocator will reject it later as DanglingReference if
			// it's ever actually reached by a placed relocation.
			continue
		}
		sec := sections.Get(r.Section)

		var buf *[]byte
		var placements map[core.Tag]Placement
		var pad byte
		if sec.Kind == core.Code {
			buf, placements, pad = &l.Code, l.CodePlacements, codePad
		} else {
			buf, placements, pad = &l.Data, l.DataPlacements, dataPad
		}

		for sec.Alignment > 0 && len(*buf)%sec.Alignment != 0 {
			*buf = append(*buf, pad)
		}

		placements[tag] = Placement{Offset: len(*buf), Size: sec.Size}

		*buf = append(*buf, sec.Payload...)
		if sec.Size > len(sec.Payload) {
			for i := 0; i < sec.Size-len(sec.Payload); i++ {
				*buf = append(*buf, pad)
			}
		}

		for _, rel := range sec.Relocs {
			queue = append(queue, rel.Target)
		}
	}

	return l, nil
}
