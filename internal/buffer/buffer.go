package buffer

// Buffer accumulates a byte sequence delivered in arbitrary chunks, never growing past the
// limit. It's used to collect the header section before it gets parsed at once.
type Buffer struct {
	memory  []byte
	maxSize int
}

func New(initialSize, maxSize int) Buffer {
	return Buffer{
		memory:  make([]byte, 0, min(initialSize, maxSize)),
		maxSize: maxSize,
	}
}

// Fill writes as many bytes of data as the limit allows and returns their number.
func (b *Buffer) Fill(data []byte) (n int) {
	n = min(len(data), b.maxSize-len(b.memory))
	b.memory = append(b.memory, data[:n]...)
	return n
}

// Full tells whether the limit is reached, so no more bytes can be written.
func (b *Buffer) Full() bool {
	return len(b.memory) >= b.maxSize
}

func (b *Buffer) Len() int {
	return len(b.memory)
}

// Bytes returns accumulated data. The slice stays valid until Clear is called.
func (b *Buffer) Bytes() []byte {
	return b.memory
}

// Clear just resets the pointers, so old values may be overridden by new ones.
func (b *Buffer) Clear() {
	b.memory = b.memory[:0]
}
