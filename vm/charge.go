// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "math"

// ChargeMeter accumulates a saturating, monotonic non-decreasing total
// and enforces an optional limit: the total
// never wraps past math.MaxUint64, and once the limit is set (>0) and
// reached the next opcode boundary fails with ErrChargeLimitReached.
type ChargeMeter struct {
	total uint64
	limit uint64
}

// NewChargeMeter returns a meter with the given limit; a limit of 0 means
// unbounded.
func NewChargeMeter(limit uint64) *ChargeMeter {
	return &ChargeMeter{limit: limit}
}

// Total returns the current charge total.
func (c *ChargeMeter) Total() uint64 { return c.total }

// Limit returns the configured limit (0 = unbounded).
func (c *ChargeMeter) Limit() uint64 { return c.limit }

// Add adds amount to the total, saturating at math.MaxUint64, and
// reports whether the limit (if any) is now met or exceeded.
func (c *ChargeMeter) Add(amount ChargeAmount) (limitReached bool) {
	sum := c.total + uint64(amount)
	if sum < c.total { // overflow
		sum = math.MaxUint64
	}
	c.total = sum
	return c.limit > 0 && c.total >= c.limit
}

// LimitReached reports whether the meter is currently at or past its
// limit without mutating state. The main loop does not call it; Step
// acts on the result of Add instead.
func (c *ChargeMeter) LimitReached() bool {
	return c.limit > 0 && c.total >= c.limit
}
