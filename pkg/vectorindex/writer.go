package vectorindex

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
)

// Write builds a .xfvi file from records in memory, in the deterministic
// order (doc_type asc, doc_id lex asc) the format requires, and
// atomically renames it into place at path. dimension must match every
// record's vector length.
func Write(path string, records []VectorRecord, dimension int) error {
	sorted := make([]VectorRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Type != sorted[j].Type {
			return sorted[i].Type < sorted[j].Type
		}
		return sorted[i].DocID < sorted[j].DocID
	})

	var dataBuf bytes.Buffer
	offsets := make([]uint64, len(sorted))
	var dataOffset uint64
	for i, rec := range sorted {
		code, ok := docTypeCode(rec.Type)
		if !ok {
			return corruptErr("unknown doc_type " + string(rec.Type))
		}
		if len(rec.Vector) != dimension {
			return corruptErr("vector dimension mismatch for " + rec.DocID)
		}

		offsets[i] = dataOffset
		idBytes := []byte(rec.DocID)

		var rec8 [4]byte
		rec8[0] = code
		rec8[1] = 0
		binary.LittleEndian.PutUint16(rec8[2:], uint16(len(idBytes)))
		dataBuf.Write(rec8[:])
		dataBuf.Write(idBytes)

		for _, f := range rec.Vector {
			var hBuf [2]byte
			binary.LittleEndian.PutUint16(hBuf[:], toFloat16(f))
			dataBuf.Write(hBuf[:])
		}

		dataOffset += uint64(4 + len(idBytes) + 2*dimension)
	}

	offsetsStart := uint64(headerLength)
	dataStart := offsetsStart + uint64(len(offsets))*8

	var out bytes.Buffer
	out.WriteString(magic)
	writeU16(&out, formatVersion)
	out.WriteByte(0) // doc-type-encoding: enum
	out.WriteByte(0) // reserved
	writeU32(&out, uint32(dimension))
	writeU64(&out, uint64(len(sorted)))
	writeU64(&out, offsetsStart)
	writeU32(&out, 0) // reserved

	for _, off := range offsets {
		writeU64(&out, dataStart+off)
	}
	out.Write(dataBuf.Bytes())

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return ioErr("creating index directory", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out.Bytes(), 0o644); err != nil {
		return ioErr("writing temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return ioErr("publishing vector index", err)
	}
	return nil
}

func writeU16(b *bytes.Buffer, v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.Write(buf[:])
}

func writeU32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func writeU64(b *bytes.Buffer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.Write(buf[:])
}
