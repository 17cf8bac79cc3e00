package mark

import "github.com/google/uuid"

// Collection holds the marks of one image keyed by stable ID.
// Iteration follows insertion order.
type Collection struct {
	order []uuid.UUID
	byID  map[uuid.UUID]*Mark
}

// NewCollection returns an empty collection
func NewCollection() *Collection {
	return &Collection{byID: make(map[uuid.UUID]*Mark)}
}

// Add stores m, assigning an ID if it has none, and returns the ID
func (c *Collection) Add(m *Mark) uuid.UUID {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if _, ok := c.byID[m.ID]; !ok {
		c.order = append(c.order, m.ID)
	}
	c.byID[m.ID] = m
	return m.ID
}

// Get returns the mark with the given ID
func (c *Collection) Get(id uuid.UUID) (*Mark, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Delete removes the mark with the given ID
func (c *Collection) Delete(id uuid.UUID) bool {
	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// DeleteWhere removes every mark for which fn returns true and reports how many were removed
func (c *Collection) DeleteWhere(fn func(*Mark) bool) int {
	kept := c.order[:0]
	removed := 0
	for _, id := range c.order {
		if fn(c.byID[id]) {
			delete(c.byID, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	c.order = kept
	return removed
}

// All returns the marks in insertion order
func (c *Collection) All() []*Mark {
	out := make([]*Mark, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of marks
func (c *Collection) Len() int {
	return len(c.order)
}

// Clear removes every mark
func (c *Collection) Clear() {
	c.order = c.order[:0]
	c.byID = make(map[uuid.UUID]*Mark)
}
