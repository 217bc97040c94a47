package world

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// computeHash is FNV-1a 64 over every saveable in key order: the key, the
// payload length and the payload. Omitted (default) resources hash as length
// zero so adding a default resource still changes nothing.
func (w *World) computeHash() uint64 {
	h := fnv.New64a()
	var tmp [8]byte
	for _, s := range w.registry.Sorted() {
		b, err := s.Save()
		if err != nil {
			w.log.Printf("[world] hash %s: %v", s.Key, err)
			b = nil
		}
		h.Write([]byte(s.Key))
		binary.LittleEndian.PutUint64(tmp[:], uint64(len(b)))
		h.Write(tmp[:])
		h.Write(b)
	}
	return h.Sum64()
}

// StateDigest is the current hash rendered for logs and traces.
func (w *World) StateDigest() string { return fmt.Sprintf("%016x", w.hash) }
