// Package counter provides the saturating counters that back every
// prediction table in the replacement engine.
package counter

import "fmt"

// A Counter is a bounded unsigned counter. Increment and decrement clamp at
// the bounds instead of wrapping.
type Counter struct {
	value uint32
	max   uint32
}

// New creates a counter with the given maximum and initial value.
func New(maxValue, initial uint32) Counter {
	if maxValue == 0 {
		panic("counter max must be positive")
	}

	if initial > maxValue {
		panic(fmt.Sprintf(
			"counter initial value %d exceeds max %d", initial, maxValue))
	}

	return Counter{value: initial, max: maxValue}
}

// MaxForBits returns the largest value representable with the given number
// of bits, i.e. 2^bits - 1.
func MaxForBits(bits uint) uint32 {
	if bits == 0 || bits > 31 {
		panic(fmt.Sprintf("counter width %d out of range", bits))
	}

	return (1 << bits) - 1
}

// Inc moves the counter one step up, clamping at the maximum.
func (c *Counter) Inc() {
	if c.value < c.max {
		c.value++
	}
}

// Dec moves the counter one step down, clamping at zero.
func (c *Counter) Dec() {
	if c.value > 0 {
		c.value--
	}
}

// Halve divides the counter by two, used for phase resets that decay
// history without discarding it.
func (c *Counter) Halve() {
	c.value >>= 1
}

// Set overwrites the counter value, clamping at the maximum.
func (c *Counter) Set(v uint32) {
	if v > c.max {
		v = c.max
	}

	c.value = v
}

// Value returns the current counter value.
func (c *Counter) Value() uint32 {
	return c.value
}

// Max returns the saturation bound.
func (c *Counter) Max() uint32 {
	return c.max
}

// IsMax reports whether the counter is saturated high.
func (c *Counter) IsMax() bool {
	return c.value == c.max
}

// IsZero reports whether the counter is saturated low.
func (c *Counter) IsZero() bool {
	return c.value == 0
}

// Midpoint returns the half-way value used as the neutral initialization
// for policy-selection counters.
func (c *Counter) Midpoint() uint32 {
	return c.max >> 1
}
