package menuet

const (
	magic   = "MENUET01"
	version = 1

	stackSize = 4096 // 4 KiB reserved stack
)

// header holds the Regions of the four header fields that get fixed up
// once the code and data regions have been emitted, mirroring
// original_source/src/kos_application.rs's Header struct.
type header struct {
	entryPoint, codeEnd, endOfData, stackTop Region
}

func writeHeader(w *Buffer) header {
	w.AppendBytes([]byte(magic))
	w.AppendUint32(version)
	return header{
		entryPoint: w.AppendUint32(0),
		codeEnd:    w.AppendUint32(0),
		endOfData:  w.AppendUint32(0),
		stackTop:   w.AppendUint32(0),
		// params and icon pointers: always 0, never fixed up.
	}
}

// Bases returns the file offsets a code region of codeSize bytes and a
// data region of dataSize bytes would land at, without writing any
// real payload. It has no side effects beyond computing two integers:
// callers use it to learn code_base/data_base before relocation, which
// needs to know final addresses to patch relocations (spec.md §4.7).
func Bases(codeSize, dataSize int) (codeBase, dataBase uint32) {
	img := build(make([]byte, codeSize), make([]byte, dataSize))
	return img.codeBase, img.dataBase
}

type built struct {
	bytes              []byte
	codeBase, dataBase uint32
}

// Build assembles the final MENUET01 image from the patched code and
// data buffers. The code/data regions land at the offsets Bases
// returned for the same buffer lengths, since placement depends only
// on size, not content.
func Build(code, data []byte) []byte {
	return build(code, data).bytes
}

func build(code, data []byte) built {
	var w Buffer
	h := writeHeader(&w)
	w.AppendUint32(0) // params pointer
	w.AppendUint32(0) // icon pointer

	w.Pad(4, 0x00)
	codeRegion := w.AppendBytes(code)
	w.UpdateUint32(h.entryPoint, uint32(codeRegion.begin))
	w.UpdateUint32(h.codeEnd, uint32(codeRegion.end))

	w.Pad(16, 0x00)
	w.AppendFill(0x00, stackSize)
	w.Pad(16, 0x00)
	w.UpdateUint32(h.stackTop, uint32(w.Offset()))

	dataRegion := w.AppendBytes(data)
	w.UpdateUint32(h.endOfData, uint32(dataRegion.end))

	return built{
		bytes:    w.Bytes(),
		codeBase: uint32(codeRegion.begin),
		dataBase: uint32(dataRegion.begin),
	}
}
