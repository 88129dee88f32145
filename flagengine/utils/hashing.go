package utils

import (
	"github.com/twmb/murmur3"
)

const (
	// RolloutSeed is the murmur3 seed used for percentage rollout buckets.
	RolloutSeed uint32 = 0
	// VariantSeed is the murmur3 seed used for weighted variant selection.
	VariantSeed uint32 = 86028157
)

// hashKey joins a group id and a stickiness value the way every binding hashes them.
func hashKey(groupID, stickiness string) []byte {
	return []byte(groupID + "." + stickiness)
}

// getNormalizedHash returns the 32-bit murmur3 hash of groupID.stickiness reduced modulo modulus.
func getNormalizedHash(groupID, stickiness string, modulus, seed uint32) uint32 {
	if modulus == 0 {
		return 0
	}
	return seedSum32Func(seed, hashKey(groupID, stickiness)) % modulus
}

// GetRolloutBucket returns a number in range [0:100) for a group id and stickiness value.
func GetRolloutBucket(groupID, stickiness string) uint32 {
	return getNormalizedHash(groupID, stickiness, 100, RolloutSeed)
}

// GetVariantTarget returns a number in range [1:totalWeight] used to pick a weighted variant.
// It returns 0 when totalWeight is 0.
func GetVariantTarget(toggleName, stickiness string, totalWeight uint32) uint32 {
	if totalWeight == 0 {
		return 0
	}
	return getNormalizedHash(toggleName, stickiness, totalWeight, VariantSeed) + 1
}

var seedSum32Func = murmur3.SeedSum32

// MockSetSeedSum32 replaces the hash function; tests use it to force buckets.
// It returns a function restoring the previous implementation.
func MockSetSeedSum32(fn func(seed uint32, data []byte) uint32) (restore func()) {
	prev := seedSum32Func
	seedSum32Func = fn
	return func() { seedSum32Func = prev }
}
