package storage

import "time"

// SetClock replaces the clock used to judge cached URL freshness.
func (c *CachedPresigner) SetClock(now func() time.Time) { c.now = now }
