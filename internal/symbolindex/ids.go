package symbolindex

import "github.com/char5742/groovy-lsp/internal/types"

// Base-63 alphabet for stable, short symbol ids: A-Z (0-25), a-z (26-51),
// 0-9 (52-61), _ (62). Adapted from the teacher's entity-id codec
// (internal/idcodec/base63.go) to encode a Symbol's stable id instead of a
// dense object id.
const (
	base63     = 63
	alphabet63 = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"
)

// EncodeID renders a Symbol's stable id in base-63, the short opaque token
// the Service Router attaches to documentSymbol/workspaceSymbol results so
// a client (or the MCP bridge) can reference a symbol again without
// round-tripping its full name and location.
func EncodeID(id types.SymbolID) string {
	return encodeBase63(uint64(id))
}

func encodeBase63(value uint64) string {
	if value == 0 {
		return "A"
	}
	var buf [11]byte
	pos := len(buf)
	for value > 0 {
		pos--
		buf[pos] = alphabet63[value%base63]
		value /= base63
	}
	return string(buf[pos:])
}
