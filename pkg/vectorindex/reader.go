package vectorindex

import (
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/exp/mmap"
)

// Reader is a memory-mapped, read-only handle over a .xfvi file,
// constructed once per process. All validation in the format's
// contract runs at Open time so later reads never need bounds checks
// beyond what Go's slicing already guarantees.
type Reader struct {
	ra           *mmap.ReaderAt
	dimension    int
	recordCount  int
	offsetsStart uint64
	fileLen      int64
}

// Open validates and memory-maps path. Any violation of the format's
// invariants (bad magic/version, out-of-range offsets, malformed doc
// ids) yields a KindCorrupt error; the caller should treat this as "the
// file must be rebuilt", never attempt partial recovery.
func Open(path string) (*Reader, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, ioErr("opening vector index", err)
	}

	r := &Reader{ra: ra, fileLen: ra.Len()}
	if err := r.validate(); err != nil {
		_ = ra.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) validate() error {
	if r.fileLen < headerLength {
		return corruptErr("file shorter than header")
	}
	header := make([]byte, headerLength)
	if _, err := r.ra.ReadAt(header, 0); err != nil {
		return ioErr("reading header", err)
	}
	if string(header[0:4]) != magic {
		return corruptErr("bad magic")
	}
	version := binary.LittleEndian.Uint16(header[4:6])
	if version != formatVersion {
		return corruptErr("unsupported version")
	}
	dimension := binary.LittleEndian.Uint32(header[8:12])
	if dimension == 0 {
		return corruptErr("dimension is zero")
	}
	recordCount := binary.LittleEndian.Uint64(header[12:20])
	offsetsStart := binary.LittleEndian.Uint64(header[20:28])
	if offsetsStart < headerLength {
		return corruptErr("offsets_start within header")
	}

	offsetsEnd := offsetsStart + recordCount*8
	if offsetsEnd > uint64(r.fileLen) {
		return corruptErr("offsets table exceeds file length")
	}

	r.dimension = int(dimension)
	r.recordCount = int(recordCount)
	r.offsetsStart = offsetsStart

	offsets := make([]uint64, recordCount)
	if recordCount > 0 {
		buf := make([]byte, recordCount*8)
		if _, err := r.ra.ReadAt(buf, int64(offsetsStart)); err != nil {
			return ioErr("reading offsets table", err)
		}
		for i := range offsets {
			offsets[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
		}
	}

	var prev uint64
	for i, off := range offsets {
		if off < offsetsEnd {
			return corruptErr("offset points into offsets table")
		}
		if i > 0 && off <= prev {
			return corruptErr("offsets not strictly increasing")
		}
		prev = off

		if off+4 > uint64(r.fileLen) {
			return corruptErr("record header exceeds file bounds")
		}
		var head [4]byte
		if _, err := r.ra.ReadAt(head[:], int64(off)); err != nil {
			return ioErr("reading record header", err)
		}
		if _, ok := docTypeFromCode(head[0]); !ok {
			return corruptErr("doc_type out of enum range")
		}
		idLen := binary.LittleEndian.Uint16(head[2:4])
		recordLen := uint64(4) + uint64(idLen) + uint64(2*r.dimension)
		if off+recordLen > uint64(r.fileLen) {
			return corruptErr("record exceeds file bounds")
		}
		idBuf := make([]byte, idLen)
		if idLen > 0 {
			if _, err := r.ra.ReadAt(idBuf, int64(off)+4); err != nil {
				return ioErr("reading doc id", err)
			}
		}
		if !utf8.Valid(idBuf) {
			return corruptErr("doc_id is not valid UTF-8")
		}
	}

	return nil
}

// Dimension returns the embedding width every record in the file shares.
func (r *Reader) Dimension() int { return r.dimension }

// Count returns the number of records in the file.
func (r *Reader) Count() int { return r.recordCount }

// IterRecords produces every record in the index's native order
// (insertion order: doc_type asc, doc_id lex asc), which is also the
// order the offsets table lists them in.
func (r *Reader) IterRecords(fn func(VectorRecord) error) error {
	if r.recordCount == 0 {
		return nil
	}
	offBuf := make([]byte, r.recordCount*8)
	if _, err := r.ra.ReadAt(offBuf, int64(r.offsetsStart)); err != nil {
		return ioErr("reading offsets table", err)
	}

	for i := 0; i < r.recordCount; i++ {
		off := binary.LittleEndian.Uint64(offBuf[i*8 : i*8+8])
		rec, err := r.readRecordAt(off)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) readRecordAt(off uint64) (VectorRecord, error) {
	var head [4]byte
	if _, err := r.ra.ReadAt(head[:], int64(off)); err != nil {
		return VectorRecord{}, ioErr("reading record header", err)
	}
	typ, ok := docTypeFromCode(head[0])
	if !ok {
		return VectorRecord{}, corruptErr("doc_type out of enum range")
	}
	idLen := binary.LittleEndian.Uint16(head[2:4])

	idBuf := make([]byte, idLen)
	if idLen > 0 {
		if _, err := r.ra.ReadAt(idBuf, int64(off)+4); err != nil {
			return VectorRecord{}, ioErr("reading doc id", err)
		}
	}

	vecBuf := make([]byte, 2*r.dimension)
	if _, err := r.ra.ReadAt(vecBuf, int64(off)+4+int64(idLen)); err != nil {
		return VectorRecord{}, ioErr("reading vector", err)
	}
	vec := make([]float32, r.dimension)
	for i := range vec {
		h := binary.LittleEndian.Uint16(vecBuf[i*2 : i*2+2])
		vec[i] = fromFloat16(h)
	}

	return VectorRecord{Type: typ, DocID: string(idBuf), Vector: vec}, nil
}

// Close releases the memory mapping.
func (r *Reader) Close() error {
	return r.ra.Close()
}
