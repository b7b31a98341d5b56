package binary

import "bytes"

// Writer accumulates a WebAssembly binary.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

// Byte writes a single byte.
func (w *Writer) Byte(b ...byte) {
	w.buf.Write(b)
}

// WriteU32 writes an unsigned LEB128 encoded uint32.
func (w *Writer) WriteU32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// WriteS32 writes a signed LEB128 encoded int32.
func (w *Writer) WriteS32(v int32) {
	w.WriteS64(int64(v))
}

// WriteS64 writes a signed LEB128 encoded int64.
func (w *Writer) WriteS64(v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && (b&0x40) == 0) || (v == -1 && (b&0x40) != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.buf.WriteByte(b)
	}
}

// WriteName writes a length-prefixed UTF-8 name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf.WriteString(s)
}

// Header writes the module magic and version.
func (w *Writer) Header() {
	w.buf.Write([]byte{0x00, 0x61, 0x73, 0x6D})
	w.buf.Write([]byte{byte(Version), 0, 0, 0})
}

// Section writes a section with id whose content is produced by body.
func (w *Writer) Section(id byte, body func(*Writer)) {
	var content Writer
	body(&content)
	w.buf.WriteByte(id)
	w.WriteU32(uint32(content.Len()))
	w.buf.Write(content.Bytes())
}

// Sized writes the content produced by body prefixed with its byte length,
// the framing of a code section entry.
func (w *Writer) Sized(body func(*Writer)) {
	var content Writer
	body(&content)
	w.WriteU32(uint32(content.Len()))
	w.buf.Write(content.Bytes())
}
