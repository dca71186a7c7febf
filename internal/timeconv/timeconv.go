// Package timeconv maps per-process CPU-tick offsets to absolute UTC
// nanosecond timestamps (C3). One Converter is built per block decode
// (cheap, no allocation on the fast path) and consulted once per event.
package timeconv

import (
	"math"
	"math/big"
	"time"
)

const nanosPerSecond = 1_000_000_000

// Converter turns tick values from one process into wall-clock time,
// given that process's CPU tick frequency and its (start_time, start_tick)
// anchor (§4.3).
type Converter struct {
	startTime time.Time
	startTick int64
	frequency uint64
}

// New builds a Converter for a process's anchor.
func New(startTime time.Time, startTick int64, tscFrequency uint64) Converter {
	return Converter{startTime: startTime, startTick: startTick, frequency: tscFrequency}
}

// ToTime converts tick t to an absolute wall-clock time.
//
// wall = start_time_utc + (t - start_tick) * 1e9 / tsc_frequency
//
// The multiplication by 1e9 can overflow 63 bits for ticks far from the
// anchor at high tick counts; the overflow-prone path falls back to
// math/big so the conversion stays correct at the cost of an allocation
// only when it is actually needed.
func (c Converter) ToTime(t int64) time.Time {
	delta := t - c.startTick
	if c.frequency == 0 {
		return c.startTime
	}

	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}
	// Fast path: if |delta| * 1e9 fits in 63 bits, plain int64 math is
	// exact and allocation-free.
	const maxSafe = (1 << 62) / nanosPerSecond
	if absDelta <= maxSafe {
		nanos := delta * nanosPerSecond / int64(c.frequency)
		return c.startTime.Add(time.Duration(nanos))
	}
	return c.toTimeBig(delta)
}

func (c Converter) toTimeBig(delta int64) time.Time {
	num := big.NewInt(delta)
	num.Mul(num, big.NewInt(nanosPerSecond))
	num.Div(num, new(big.Int).SetUint64(c.frequency))
	return c.startTime.Add(time.Duration(num.Int64()))
}

// ToTicks is the inverse of ToTime. Like ToTime, it uses plain int64
// math when the product fits and falls back to math/big otherwise.
func (c Converter) ToTicks(t time.Time) int64 {
	if c.frequency == 0 {
		return c.startTick
	}
	d := int64(t.Sub(c.startTime))
	absD := d
	if absD < 0 {
		absD = -absD
	}
	if absD <= math.MaxInt64/int64(c.frequency) {
		return c.startTick + d*int64(c.frequency)/nanosPerSecond
	}
	num := big.NewInt(d)
	num.Mul(num, new(big.Int).SetUint64(c.frequency))
	num.Div(num, big.NewInt(nanosPerSecond))
	return c.startTick + num.Int64()
}
