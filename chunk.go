package pnglite

import (
	"encoding/binary"
	"hash/crc32"
)

type chunkTag int

const (
	tagUnknown chunkTag = iota
	tagIHDR
	tagPLTE
	tagTRNS
	tagIDAT
	tagIEND
)

var chunkNames = [...]struct {
	name [4]byte
	tag  chunkTag
}{
	{[4]byte{'I', 'H', 'D', 'R'}, tagIHDR},
	{[4]byte{'P', 'L', 'T', 'E'}, tagPLTE},
	{[4]byte{'t', 'R', 'N', 'S'}, tagTRNS},
	{[4]byte{'I', 'D', 'A', 'T'}, tagIDAT},
	{[4]byte{'I', 'E', 'N', 'D'}, tagIEND},
}

func classifyChunk(name [4]byte) chunkTag {
	for _, c := range chunkNames {
		if c.name == name {
			return c.tag
		}
	}
	return tagUnknown
}

// maxChunkLength is the largest length PNG allows (2^31-1).
const maxChunkLength = 1<<31 - 1

type chunkHeader struct {
	length uint32
	name   [4]byte
	tag    chunkTag
}

func (h chunkHeader) String() string { return string(h.name[:]) }

func (p *readPort) readChunkHeader() (chunkHeader, error) {
	var h chunkHeader
	if err := p.readFull("read chunk header", p.tmp[:8]); err != nil {
		return h, err
	}
	h.length = binary.BigEndian.Uint32(p.tmp[:4])
	copy(h.name[:], p.tmp[4:8])
	h.tag = classifyChunk(h.name)
	if h.length > maxChunkLength {
		return h, errorf(CorruptedError, "read "+h.String(), "chunk length %d out of range", h.length)
	}
	return h, nil
}

// chunkCRC is the CRC-32 over the chunk type followed by its payload.
func chunkCRC(name [4]byte, payload []byte) uint32 {
	crc := crc32.ChecksumIEEE(name[:])
	return crc32.Update(crc, crc32.IEEETable, payload)
}

// verifyCRC reads the 4-byte CRC that follows payload and checks it.
func (p *readPort) verifyCRC(h chunkHeader, payload []byte) error {
	op := "read " + h.String()
	want, err := p.readU32(op)
	if err != nil {
		return err
	}
	if got := chunkCRC(h.name, payload); got != want {
		return errorf(CrcError, op, "have %08x, want %08x", got, want)
	}
	return nil
}

// writeChunk writes length, type, payload and CRC.
func (p *writePort) writeChunk(name [4]byte, payload []byte) error {
	op := "write " + string(name[:])
	if err := p.writeU32(op, uint32(len(payload))); err != nil {
		return err
	}
	if err := p.write(op, name[:]); err != nil {
		return err
	}
	if err := p.write(op, payload); err != nil {
		return err
	}
	return p.writeU32(op, chunkCRC(name, payload))
}

var (
	nameIHDR = chunkNames[0].name
	namePLTE = chunkNames[1].name
	nameTRNS = chunkNames[2].name
	nameIDAT = chunkNames[3].name
	nameIEND = chunkNames[4].name
)
