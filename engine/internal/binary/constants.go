// Package binary encodes and decodes the subset of the WebAssembly binary
// format used for emitted method modules.
package binary

const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs. Sections must appear in increasing order.
const (
	SectionType     byte = 1
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionExport   byte = 7
	SectionCode     byte = 10
)

// Export kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
)

const (
	ValI32 byte = 0x7F
	ValI64 byte = 0x7E

	// FuncType prefixes a function signature in the type section.
	FuncType byte = 0x60
	// BlockVoid is the empty block type.
	BlockVoid byte = 0x40
)

// Control instructions
const (
	OpUnreachable byte = 0x00
	OpBlock       byte = 0x02
	OpLoop        byte = 0x03
	OpIf          byte = 0x04
	OpElse        byte = 0x05
	OpEnd         byte = 0x0B
	OpBr          byte = 0x0C
	OpBrIf        byte = 0x0D
	OpReturn      byte = 0x0F
	OpCall        byte = 0x10
	OpDrop        byte = 0x1A
)

// Variable and memory instructions
const (
	OpLocalGet byte = 0x20
	OpLocalSet byte = 0x21
	OpI64Load  byte = 0x29
)

// Numeric instructions
const (
	OpI32Const byte = 0x41
	OpI64Const byte = 0x42
	OpI32Eqz   byte = 0x45
	OpI32Ne    byte = 0x47
	OpI64Eqz   byte = 0x50
	OpI64Eq    byte = 0x51
	OpI64Ne    byte = 0x52
	OpI64LtS   byte = 0x53
	OpI64GtS   byte = 0x55
	OpI64LeS   byte = 0x57
	OpI64GeS   byte = 0x59
	OpI64Add   byte = 0x7C
	OpI64Sub   byte = 0x7D
	OpI64Mul   byte = 0x7E
	OpI64DivS  byte = 0x7F
	OpI64RemS  byte = 0x81
	OpI64And   byte = 0x83
	OpI64Or    byte = 0x84
	OpI64Xor   byte = 0x85
	OpI64Shl   byte = 0x86
	OpI64ShrS  byte = 0x87

	OpI64ExtendI32U byte = 0xAD
)
