package ot

import (
	"errors"
	"math/bits"
)

// Reading bytes from a font's binary representation

var errBufferBounds = errors.New("internal inconsistency: buffer bounds error")

func u16(b []byte) uint16 {
	_ = b[1] // Bounds check hint to compiler
	return uint16(b[0])<<8 | uint16(b[1])<<0
}

func u24(b []byte) uint32 {
	_ = b[2] // Bounds check hint to compiler
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])<<0
}

func u32(b []byte) uint32 {
	_ = b[3] // Bounds check hint to compiler
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])<<0
}

// binarySegm is a segment of byte data.
// We use it throughout this module to navigate the font's binary data.
type binarySegm []byte

// view returns n bytes at the given offset.
// The byte segment returned is a sub-slice of b.
func (b binarySegm) view(offset, n int) (binarySegm, error) {
	if offset < 0 || n < 0 || offset+n > len(b) {
		return nil, errBufferBounds
	}
	return b[offset : offset+n], nil
}

// from returns the tail of b starting at offset.
func (b binarySegm) from(offset int) (binarySegm, error) {
	if offset < 0 || offset > len(b) {
		return nil, errBufferBounds
	}
	return b[offset:], nil
}

// u16 returns the uint16 in b at the relative offset i.
func (b binarySegm) u16(i int) (uint16, error) {
	buf, err := b.view(i, 2)
	if err != nil {
		return 0, err
	}
	return u16(buf), nil
}

// u32 returns the uint32 in b at the relative offset i.
func (b binarySegm) u32(i int) (uint32, error) {
	buf, err := b.view(i, 4)
	if err != nil {
		return 0, err
	}
	return u32(buf), nil
}

// reader walks a binary segment sequentially. The first bounds violation
// is remembered and turns all subsequent reads into zero values, so callers
// may check for errors once after a group of reads.
type reader struct {
	data binarySegm
	pos  int
	err  error
}

func newReader(b binarySegm, pos int) *reader {
	return &reader{data: b, pos: pos}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf, err := r.data.view(r.pos, n)
	if err != nil {
		r.err = err
		return nil
	}
	r.pos += n
	return buf
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return u16(b)
	}
	return 0
}

func (r *reader) u24() uint32 {
	if b := r.take(3); b != nil {
		return u24(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return u32(b)
	}
	return 0
}

func (r *reader) tag() Tag {
	return Tag(r.u32())
}

// u16s reads n consecutive uint16 values.
func (r *reader) u16s(n int) []uint16 {
	b := r.take(2 * n)
	if b == nil {
		return nil
	}
	v := make([]uint16, n)
	for i := range v {
		v[i] = u16(b[2*i:])
	}
	return v
}

func (r *reader) glyphs(n int) []GlyphIndex {
	w := r.u16s(n)
	if w == nil {
		return nil
	}
	g := make([]GlyphIndex, n)
	for i := range w {
		g[i] = GlyphIndex(w[i])
	}
	return g
}

// --- Writing ---------------------------------------------------------------

// writer appends big-endian values to a growing byte slice.
type writer struct {
	buf []byte
}

func (w *writer) len() int { return len(w.buf) }

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u16(v uint16) {
	w.buf = append(w.buf, byte(v>>8), byte(v))
}

func (w *writer) i16(v int16) {
	w.u16(uint16(v))
}

func (w *writer) u24(v uint32) {
	w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
}

func (w *writer) u32(v uint32) {
	w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (w *writer) tag(t Tag) {
	w.u32(uint32(t))
}

func (w *writer) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) glyphs(g []GlyphIndex) {
	for _, gid := range g {
		w.u16(uint16(gid))
	}
}

// pad appends zero bytes until the length is a multiple of 4.
func (w *writer) pad() {
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

func put16(b []byte, v uint16) {
	_ = b[1]
	b[0], b[1] = byte(v>>8), byte(v)
}

func put32(b []byte, v uint32) {
	_ = b[3]
	b[0], b[1], b[2], b[3] = byte(v>>24), byte(v>>16), byte(v>>8), byte(v)
}

// binarySearchParams computes searchRange, entrySelector and rangeShift for
// n entries of the given size, as used by the table directory and by cmap
// format 4.
func binarySearchParams(n int, size int) (searchRange, entrySelector, rangeShift uint16) {
	if n == 0 {
		return 0, 0, 0
	}
	sel := bits.Len(uint(n)) - 1
	searchRange = uint16((1 << sel) * size)
	entrySelector = uint16(sel)
	rangeShift = uint16(n*size) - searchRange
	return
}
