package sharded

import "hash/maphash"

// defaultShards is the shard count used when the caller passes a non-positive value.
const defaultShards = 64

var seed = maphash.MakeSeed()

// shardIndex maps key onto one of numShards buckets.
// numShards must be a power of 2 for the bitwise AND to act as a modulus.
func shardIndex(key string, numShards int) int {
	return int(maphash.String(seed, key) & uint64(numShards-1))
}

func isPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// normalizeShards returns a valid shard count for n.
func normalizeShards(n int) int {
	if n <= 0 {
		return defaultShards
	}
	if !isPowerOfTwo(n) {
		panic("num shards must be a power of 2")
	}
	return n
}
