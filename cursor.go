package bpkv

// Cursor operation constants for Cursor.Get
const (
	// First positions at the first live key
	First uint = iota
	// Last positions at the last live key
	Last
	// Next moves to the next live key
	Next
	// Prev moves to the previous live key
	Prev
	// GetCurrent returns the current key-value
	GetCurrent
	// Set positions at exactly the given key
	Set
	// SetRange positions at the first live key >= the given key
	SetRange
)

// cursorState tracks cursor validity
type cursorState uint8

const (
	cursorUninitialized cursorState = iota
	cursorPointing                  // Cursor is at a live entry
	cursorEOF                       // Cursor ran off either end
)

// Cursor walks live entries in key order over the leaf chain.
//
// Keys and values returned by a cursor point into the arena and stay valid
// until the engine is closed. Any Put on the engine may split the leaf the
// cursor sits on; reposition with Seek after writing. Deletes are safe but
// the current entry stays visible until the cursor moves.
type Cursor struct {
	engine *Engine
	leaf   *node
	index  int
	state  cursorState
}

// OpenCursor returns an unpositioned cursor.
func (e *Engine) OpenCursor() (*Cursor, error) {
	if e.closed {
		return nil, ErrClosedError
	}
	return e.newCursor(), nil
}

func (e *Engine) newCursor() *Cursor {
	return &Cursor{engine: e}
}

// Close detaches the cursor from its engine.
func (c *Cursor) Close() {
	c.engine = nil
	c.reset()
}

func (c *Cursor) reset() {
	c.leaf = nil
	c.index = 0
	c.state = cursorUninitialized
}

func (c *Cursor) usable() bool {
	return c.engine != nil && !c.engine.closed
}

// Valid reports whether the cursor is positioned on an entry.
func (c *Cursor) Valid() bool {
	return c.usable() && c.state == cursorPointing &&
		c.leaf != nil && c.index >= 0 && c.index < len(c.leaf.keys)
}

// EOF reports whether the last move ran off either end.
func (c *Cursor) EOF() bool {
	return c.state == cursorEOF
}

// Key returns the current key, or nil if the cursor is not valid.
func (c *Cursor) Key() []byte {
	if !c.Valid() {
		return nil
	}
	return c.leaf.keys[c.index]
}

// Value returns the current value, or nil if the cursor is not valid.
func (c *Cursor) Value() []byte {
	if !c.Valid() {
		return nil
	}
	return c.engine.es.value(c.leaf.entries[c.index])
}

func (c *Cursor) dead() bool {
	return c.engine.es.deleted(c.leaf.entries[c.index])
}

// First positions at the smallest live key.
func (c *Cursor) First() bool {
	if !c.usable() {
		return false
	}
	c.leaf, c.index = c.engine.tree.firstLeaf, 0
	return c.forward(false)
}

// Last positions at the largest live key.
func (c *Cursor) Last() bool {
	if !c.usable() {
		return false
	}
	c.leaf = c.engine.tree.lastLeaf()
	c.index = len(c.leaf.keys) - 1
	return c.backward(false)
}

// Seek positions at the smallest live key >= key. When the lower bound
// falls past the end of its leaf the search continues in the next leaf.
func (c *Cursor) Seek(key []byte) bool {
	if !c.usable() {
		return false
	}
	c.leaf = c.engine.tree.findLeaf(key)
	c.index, _ = c.leaf.search(key)
	return c.forward(false)
}

// Next advances to the next live key.
func (c *Cursor) Next() bool {
	if !c.Valid() {
		return false
	}
	return c.forward(true)
}

// Prev moves back to the previous live key.
func (c *Cursor) Prev() bool {
	if !c.Valid() {
		return false
	}
	return c.backward(true)
}

// forward settles on the first live entry at or after the current slot,
// or after it when step is set, following next links across leaves.
func (c *Cursor) forward(step bool) bool {
	if step {
		c.index++
	}
	for c.leaf != nil {
		for ; c.index < len(c.leaf.keys); c.index++ {
			if !c.dead() {
				c.state = cursorPointing
				return true
			}
		}
		c.leaf, c.index = c.leaf.next, 0
	}
	c.state = cursorEOF
	return false
}

// backward mirrors forward using prev links.
func (c *Cursor) backward(step bool) bool {
	if step {
		c.index--
	}
	for c.leaf != nil {
		for ; c.index >= 0; c.index-- {
			if !c.dead() {
				c.state = cursorPointing
				return true
			}
		}
		c.leaf = c.leaf.prev
		if c.leaf != nil {
			c.index = len(c.leaf.keys) - 1
		}
	}
	c.state = cursorEOF
	return false
}

// Get moves the cursor according to op and returns the entry it lands on.
// key is only read by Set and SetRange. It returns ErrNotFound when no
// entry qualifies.
func (c *Cursor) Get(key []byte, op uint) ([]byte, []byte, error) {
	if !c.usable() {
		return nil, nil, ErrClosedError
	}

	var ok bool
	switch op {
	case First:
		ok = c.First()
	case Last:
		ok = c.Last()
	case Next:
		if c.state == cursorUninitialized {
			ok = c.First()
		} else {
			ok = c.Next()
		}
	case Prev:
		if c.state == cursorUninitialized {
			ok = c.Last()
		} else {
			ok = c.Prev()
		}
	case GetCurrent:
		ok = c.Valid()
	case Set:
		ok = c.Seek(key) && Compare(c.Key(), key) == 0
		if !ok {
			c.reset()
		}
	case SetRange:
		ok = c.Seek(key)
	default:
		return nil, nil, NewError(ErrInvalid)
	}

	if !ok {
		return nil, nil, ErrNotFoundError
	}
	return c.Key(), c.Value(), nil
}
