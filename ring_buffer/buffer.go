package ring_buffer

// bufImpl is a FIFO of audio chunks. While bounded it keeps only the most
// recent size chunks, evicting the oldest; once unbounded it grows instead.
type bufImpl struct {
	buffer  [][]byte
	head    int
	count   int
	size    int
	bounded bool
}

func New(size int) Interface {
	if size < 0 {
		size = 0
	}

	return &bufImpl{
		buffer:  make([][]byte, size),
		size:    size,
		bounded: true,
	}
}

func (r *bufImpl) Add(chunk []byte) {
	if r.bounded {
		if r.size == 0 {
			return
		}

		if r.count == r.size {
			r.buffer[r.head] = chunk
			r.head = (r.head + 1) % len(r.buffer)
			return
		}
	} else if r.count == len(r.buffer) {
		r.grow()
	}

	r.buffer[(r.head+r.count)%len(r.buffer)] = chunk
	r.count++
}

// Unbound stops eviction. Chunks already held stay in order.
func (r *bufImpl) Unbound() {
	r.bounded = false
}

func (r *bufImpl) Bounded() bool {
	return r.bounded
}

// Pop removes and returns the oldest chunk.
func (r *bufImpl) Pop() ([]byte, bool) {
	if r.count == 0 {
		return nil, false
	}

	chunk := r.buffer[r.head]
	r.buffer[r.head] = nil
	r.head = (r.head + 1) % len(r.buffer)
	r.count--

	return chunk, true
}

// Read returns the held chunks oldest first without removing them.
func (r *bufImpl) Read() [][]byte {
	chunks := make([][]byte, r.count)
	for i := 0; i < r.count; i++ {
		chunks[i] = r.buffer[(r.head+i)%len(r.buffer)]
	}
	return chunks
}

func (r *bufImpl) Len() int {
	return r.count
}

// Clear empties the buffer and restores the bounded mode.
func (r *bufImpl) Clear() {
	r.buffer = make([][]byte, r.size)
	r.head = 0
	r.count = 0
	r.bounded = true
}

func (r *bufImpl) grow() {
	capacity := len(r.buffer) * 2
	if capacity == 0 {
		capacity = 8
	}

	grown := make([][]byte, capacity)
	copy(grown, r.Read())

	r.buffer = grown
	r.head = 0
}
