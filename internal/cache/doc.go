// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package cache provides the in-memory building blocks for per-player state.

# Ring

Ring is a fixed-capacity FIFO buffer. Pushing into a full ring evicts the
oldest element in O(1). It is not safe for concurrent use on its own; callers
guard it with the lock of the ShardedMap entry that owns it.

# ShardedMap

ShardedMap spreads string keys over a fixed number of shards, each with its
own RWMutex, so that operations on different players rarely contend:

	m := cache.NewShardedMap[*state](64)
	m.Update("acc-1", func(s *state, ok bool) (*state, bool) {
	    if !ok {
	        s = newState()
	    }
	    s.samples.Push(sample)
	    return s, true
	})

Update runs the callback under the shard's write lock, which makes a
read-modify-write on a single key atomic with respect to every other
operation on that key.
*/
package cache
