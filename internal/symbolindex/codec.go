package symbolindex

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/char5742/groovy-lsp/internal/types"
)

// record is one forward-map entry: the complete symbol list for a single
// file, written as one length-prefixed, crc-guarded chunk so a partial
// write (a crash mid-append) is detectable and discarded on replay,
// leaving the store in its pre-transaction state (spec.md §4.3 write
// discipline). Encoding follows the teacher's length-prefixed
// little-endian record style (internal/core/postings.go).
type record struct {
	path    string
	symbols []types.Symbol
	tomb    bool // true = this record deletes path
}

// encodeRecord serializes r into the on-disk record format:
//
//	[u8 tombstone][u32 pathLen][path][u32 symbolCount][symbol...][u32 crc32]
//
// where each symbol is:
//
//	[u32 nameLen][name][u8 kind][u32 fileLen][file][i32 line][i32 column]
//	[u8 hasContainer][u64 containerID][u64 id]
func encodeRecord(r record) []byte {
	var buf []byte
	buf = appendByte(buf, boolByte(r.tomb))
	buf = appendString(buf, r.path)
	buf = appendU32(buf, uint32(len(r.symbols)))
	for _, s := range r.symbols {
		buf = appendString(buf, s.Name)
		buf = appendByte(buf, byte(s.Kind))
		buf = appendString(buf, s.File)
		buf = appendI32(buf, int32(s.Line))
		buf = appendI32(buf, int32(s.Column))
		buf = appendByte(buf, boolByte(s.HasContainer))
		buf = appendU64(buf, uint64(s.ContainerID))
		buf = appendU64(buf, uint64(s.ID))
	}
	sum := crc32.ChecksumIEEE(buf)
	buf = appendU32(buf, sum)

	framed := make([]byte, 0, len(buf)+4)
	framed = appendU32(framed, uint32(len(buf)))
	framed = append(framed, buf...)
	return framed
}

// decodeRecord reads one length-framed record from r. io.EOF at a clean
// frame boundary means "no more records"; any other error (including a
// truncated final frame or a crc mismatch) means the log should stop
// replaying here — everything after it is an incomplete transaction.
func decodeRecord(r io.Reader) (record, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return record{}, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return record{}, fmt.Errorf("truncated record: %w", io.ErrUnexpectedEOF)
	}
	if len(body) < 4 {
		return record{}, fmt.Errorf("record too short")
	}
	payload, wantSum := body[:len(body)-4], binary.LittleEndian.Uint32(body[len(body)-4:])
	if crc32.ChecksumIEEE(payload) != wantSum {
		return record{}, fmt.Errorf("record checksum mismatch")
	}

	pos := 0
	tomb := payload[pos] != 0
	pos++
	path, pos, err := readString(payload, pos)
	if err != nil {
		return record{}, err
	}
	count := binary.LittleEndian.Uint32(payload[pos:])
	pos += 4

	symbols := make([]types.Symbol, 0, count)
	for i := uint32(0); i < count; i++ {
		var s types.Symbol
		var name, file string
		name, pos, err = readString(payload, pos)
		if err != nil {
			return record{}, err
		}
		s.Name = name
		s.Kind = types.SymbolKind(payload[pos])
		pos++
		file, pos, err = readString(payload, pos)
		if err != nil {
			return record{}, err
		}
		s.File = file
		s.Line = int(int32(binary.LittleEndian.Uint32(payload[pos:])))
		pos += 4
		s.Column = int(int32(binary.LittleEndian.Uint32(payload[pos:])))
		pos += 4
		s.HasContainer = payload[pos] != 0
		pos++
		s.ContainerID = types.SymbolID(binary.LittleEndian.Uint64(payload[pos:]))
		pos += 8
		s.ID = types.SymbolID(binary.LittleEndian.Uint64(payload[pos:]))
		pos += 8
		symbols = append(symbols, s)
	}

	return record{path: path, symbols: symbols, tomb: tomb}, nil
}

func readString(b []byte, pos int) (string, int, error) {
	if pos+4 > len(b) {
		return "", pos, fmt.Errorf("short string length")
	}
	n := int(binary.LittleEndian.Uint32(b[pos:]))
	pos += 4
	if pos+n > len(b) {
		return "", pos, fmt.Errorf("short string body")
	}
	return string(b[pos : pos+n]), pos + n, nil
}

func appendByte(b []byte, v byte) []byte { return append(b, v) }

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendI32(b []byte, v int32) []byte {
	return appendU32(b, uint32(v))
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendString(b []byte, s string) []byte {
	b = appendU32(b, uint32(len(s)))
	return append(b, s...)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
