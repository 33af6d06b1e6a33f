package bitvec

import (
	"math/bits"

	"github.com/klauspost/cpuid/v2"
)

// matchWords sums popcount(^(a[i]^w[i])) over all words. The kernel is
// picked once at startup: the unrolled variant keeps four independent
// accumulators so the hardware popcount units stay busy.
var matchWords func(a, w []uint64) int

func init() {
	if cpuid.CPU.Supports(cpuid.POPCNT) {
		matchWords = matchWordsUnrolled
	} else {
		matchWords = matchWordsGeneric
	}
}

func matchWordsGeneric(a, w []uint64) int {
	total := 0
	for i := range a {
		total += bits.OnesCount64(^(a[i] ^ w[i]))
	}
	return total
}

func matchWordsUnrolled(a, w []uint64) int {
	var c0, c1, c2, c3 int
	i := 0
	for ; i+4 <= len(a); i += 4 {
		c0 += bits.OnesCount64(^(a[i] ^ w[i]))
		c1 += bits.OnesCount64(^(a[i+1] ^ w[i+1]))
		c2 += bits.OnesCount64(^(a[i+2] ^ w[i+2]))
		c3 += bits.OnesCount64(^(a[i+3] ^ w[i+3]))
	}
	for ; i < len(a); i++ {
		c0 += bits.OnesCount64(^(a[i] ^ w[i]))
	}
	return c0 + c1 + c2 + c3
}
