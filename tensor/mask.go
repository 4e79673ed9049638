package tensor

// Mask marks frames (batch × time) that carry no signal, e.g. no voice or no
// face detected. True means invalid.
type Mask struct {
	batch, time int
	invalid     []bool
}

// NewMask returns a mask with every frame valid.
func NewMask(batch, time int) *Mask {
	return &Mask{batch: batch, time: time, invalid: make([]bool, batch*time)}
}

// Batch returns the batch dimension.
func (m *Mask) Batch() int { return m.batch }

// Time returns the time dimension.
func (m *Mask) Time() int { return m.time }

// Invalid reports whether frame t of sample b is masked out.
func (m *Mask) Invalid(b, t int) bool { return m.invalid[b*m.time+t] }

// SetInvalid marks frame t of sample b.
func (m *Mask) SetInvalid(b, t int, v bool) { m.invalid[b*m.time+t] = v }

// Valid counts the unmasked frames of sample b.
func (m *Mask) Valid(b int) (n int) {
	for _, v := range m.invalid[b*m.time : (b+1)*m.time] {
		if !v {
			n++
		}
	}
	return
}
