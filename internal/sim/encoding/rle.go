package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeRLE encodes a byte layer as uvarint (value, run_len) pairs.
func EncodeRLE(cells []uint8) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(cells) {
		b := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == b && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(b))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return buf.Bytes()
}

// DecodeRLE expands pairs produced by EncodeRLE. want is the expected cell
// count; a mismatch is an error so truncated layers are never accepted.
func DecodeRLE(raw []byte, want int) ([]uint8, error) {
	out := make([]uint8, 0, want)
	for i := 0; i < len(raw); {
		b, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if b > 0xFF {
			return nil, fmt.Errorf("cell value too large: %d", b)
		}
		if len(out)+int(run) > want {
			return nil, fmt.Errorf("run overflows layer: %d > %d", len(out)+int(run), want)
		}
		for k := 0; k < int(run); k++ {
			out = append(out, uint8(b))
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("layer length %d, want %d", len(out), want)
	}
	return out, nil
}
