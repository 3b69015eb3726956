package ring_buffer

type Interface interface {
	Add(chunk []byte)
	Pop() ([]byte, bool)
	Read() [][]byte
	Unbound()
	Bounded() bool
	Len() int
	Clear()
}
