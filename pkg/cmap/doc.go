// Package cmap provides a sharded concurrent map.
//
// Each shard has its own RWMutex, so lookups for unrelated keys rarely
// contend. Range and DeleteFunc visit shards one at a time and do not see a
// consistent view of the whole map.
package cmap
