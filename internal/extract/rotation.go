package extract

// Cursor selects the active credential. It is a value: Next returns the
// following position and leaves the receiver unchanged.
type Cursor struct {
	Index int
	Size  int
}

// Next advances circularly.
func (c Cursor) Next() Cursor {
	if c.Size <= 0 {
		return c
	}
	return Cursor{Index: (c.Index + 1) % c.Size, Size: c.Size}
}
