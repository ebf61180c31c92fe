// Package menuet builds a MENUET01 flat-binary image from a linked
// code buffer and data buffer (spec.md §4.7, §6). It is generalized
// from original_source/src/writer/mod.rs's append/update buffer idiom.
package menuet

import (
	"encoding/binary"

	"github.com/kos-tools/kld/arch"
)

// layout is MENUET01's on-disk word layout: little-endian, 4-byte words.
var layout = arch.NewLayout(binary.LittleEndian, 4)

// A Region names a byte range already written into a Buffer, so it can
// be revisited later to patch in a value that wasn't known yet (the
// header fields, fixed up once the code/data sizes are final).
type Region struct{ begin, end int }

// Buffer is an append-only byte buffer that also supports revisiting
// an earlier Region to overwrite it in place.
type Buffer struct {
	b []byte
}

// Offset returns the current length of the buffer.
func (w *Buffer) Offset() int { return len(w.b) }

// Bytes returns the buffer's contents. The caller must not modify it.
func (w *Buffer) Bytes() []byte { return w.b }

// Pad appends filler bytes until the buffer's length is a multiple of
// alignment.
func (w *Buffer) Pad(alignment int, filler byte) {
	for alignment > 0 && len(w.b)%alignment != 0 {
		w.b = append(w.b, filler)
	}
}

// AppendBytes appends buf and returns the Region it now occupies.
func (w *Buffer) AppendBytes(buf []byte) Region {
	start := len(w.b)
	w.b = append(w.b, buf...)
	return Region{start, len(w.b)}
}

// AppendFill appends count copies of filler and returns the Region it
// now occupies.
func (w *Buffer) AppendFill(filler byte, count int) Region {
	start := len(w.b)
	for i := 0; i < count; i++ {
		w.b = append(w.b, filler)
	}
	return Region{start, len(w.b)}
}

// AppendUint32 appends v in layout's byte order and returns the Region
// it now occupies.
func (w *Buffer) AppendUint32(v uint32) Region {
	start := len(w.b)
	var buf [4]byte
	layout.Order().PutUint32(buf[:], v)
	w.b = append(w.b, buf[:]...)
	return Region{start, len(w.b)}
}

// UpdateUint32 overwrites r, which must have been returned by a prior
// AppendUint32 on the same Buffer, with v in layout's byte order.
func (w *Buffer) UpdateUint32(r Region, v uint32) {
	var buf [4]byte
	layout.Order().PutUint32(buf[:], v)
	copy(w.b[r.begin:r.end], buf[:])
}
