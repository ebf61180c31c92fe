package menuet

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasesMatchBuildOffsets(t *testing.T) {
	code := []byte{0xB8, 0x01, 0x00, 0x00, 0x00}
	data := []byte("Hi\x00")

	codeBase, dataBase := Bases(len(code), len(data))
	img := Build(code, data)

	assert.Equal(t, []byte(magic), img[0:8])
	assert.Equal(t, uint32(version), binary.LittleEndian.Uint32(img[8:12]))
	assert.Equal(t, codeBase, binary.LittleEndian.Uint32(img[12:16])) // entry point
	assert.Equal(t, codeBase+uint32(len(code)), binary.LittleEndian.Uint32(img[16:20]))
	assert.Equal(t, dataBase+uint32(len(data)), binary.LittleEndian.Uint32(img[20:24])) // end of data
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(img[28:32]))                  // params pointer
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(img[32:36]))                  // icon pointer

	assert.Equal(t, code, img[codeBase:int(codeBase)+len(code)])
	assert.Equal(t, data, img[dataBase:int(dataBase)+len(data)])
}

func TestStackImmediatelyPrecedesData(t *testing.T) {
	_, dataBase := Bases(5, 3)
	img := Build(make([]byte, 5), []byte{1, 2, 3})
	stackTop := binary.LittleEndian.Uint32(img[24:28])
	assert.Equal(t, dataBase, stackTop)
}

func TestBasesHaveNoSideEffects(t *testing.T) {
	a1, b1 := Bases(5, 3)
	a2, b2 := Bases(5, 3)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}
