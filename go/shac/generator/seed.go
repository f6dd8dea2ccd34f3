package generator

import (
	"encoding/binary"
	"hash/fnv"
)

// deriveSeed combines (engineSeed, epoch, workerID, slotIndex) into one
// deterministic per-slot PRNG seed, so a generation run is fully
// reproducible given the same engine seed and the same worker count
// (spec.md section 4.4, Determinism).
func deriveSeed(engineSeed int64, epoch, workerID, slotIndex int) int64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	write(engineSeed)
	write(int64(epoch))
	write(int64(workerID))
	write(int64(slotIndex))
	return int64(h.Sum64())
}
