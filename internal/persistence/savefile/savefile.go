// Package savefile reads and writes the binary city save format: a fixed
// 32-byte header, a metadata section and a payload of keyed blobs.
package savefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
)

const (
	Magic      = "MEGA"
	Version    = 1
	HeaderSize = 32
)

var (
	ErrShort     = errors.New("savefile: truncated")
	ErrMagic     = errors.New("savefile: bad magic")
	ErrVersion   = errors.New("savefile: unsupported version")
	ErrChecksum  = errors.New("savefile: payload checksum mismatch")
	ErrKeyLength = errors.New("savefile: key too long")
)

// Header is the fixed little-endian prefix of every save file.
type Header struct {
	Version     uint32
	PayloadLen  uint64
	MetadataLen uint64
	CRC32       uint32
}

// Metadata is shown in slot pickers without decoding the payload.
type Metadata struct {
	CityName        string  `json:"city_name"`
	Population      uint32  `json:"population"`
	Treasury        float64 `json:"treasury"`
	Day             uint32  `json:"day"`
	Hour            float32 `json:"hour"`
	PlayTimeSeconds float64 `json:"play_time_seconds"`
}

// Blob is one saveable resource's encoded state.
type Blob struct {
	Key   string
	Value []byte
}

type File struct {
	Meta  Metadata
	Blobs []Blob
}

// Get returns the blob stored under key.
func (f *File) Get(key string) ([]byte, bool) {
	for _, b := range f.Blobs {
		if b.Key == key {
			return b.Value, true
		}
	}
	return nil, false
}

func (f *File) Keys() []string {
	out := make([]string, len(f.Blobs))
	for i, b := range f.Blobs {
		out[i] = b.Key
	}
	return out
}

// Payload is the concatenated blob section the checksum covers.
func (f *File) Payload() ([]byte, error) {
	var buf bytes.Buffer
	var tmp [4]byte
	for _, b := range f.Blobs {
		if len(b.Key) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: %d bytes", ErrKeyLength, len(b.Key))
		}
		binary.LittleEndian.PutUint16(tmp[:2], uint16(len(b.Key)))
		buf.Write(tmp[:2])
		buf.WriteString(b.Key)
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(b.Value)))
		buf.Write(tmp[:])
		buf.Write(b.Value)
	}
	return buf.Bytes(), nil
}

func encodeMetadata(m Metadata) []byte {
	buf := make([]byte, 0, 4+len(m.CityName)+28)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(m.CityName)))
	buf = append(buf, m.CityName...)
	buf = binary.LittleEndian.AppendUint32(buf, m.Population)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.Treasury))
	buf = binary.LittleEndian.AppendUint32(buf, m.Day)
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(m.Hour))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(m.PlayTimeSeconds))
	return buf
}

func decodeMetadata(b []byte) (Metadata, error) {
	var m Metadata
	if len(b) == 0 {
		return m, nil
	}
	if len(b) < 4 {
		return m, fmt.Errorf("metadata: %w", ErrShort)
	}
	n := int(binary.LittleEndian.Uint32(b))
	b = b[4:]
	if len(b) < n+28 {
		return m, fmt.Errorf("metadata: %w", ErrShort)
	}
	m.CityName = string(b[:n])
	b = b[n:]
	m.Population = binary.LittleEndian.Uint32(b)
	m.Treasury = math.Float64frombits(binary.LittleEndian.Uint64(b[4:]))
	m.Day = binary.LittleEndian.Uint32(b[12:])
	m.Hour = math.Float32frombits(binary.LittleEndian.Uint32(b[16:]))
	m.PlayTimeSeconds = math.Float64frombits(binary.LittleEndian.Uint64(b[20:]))
	return m, nil
}

func decodePayload(b []byte) ([]Blob, error) {
	var out []Blob
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("payload key length: %w", ErrShort)
		}
		kl := int(binary.LittleEndian.Uint16(b))
		b = b[2:]
		if len(b) < kl+4 {
			return nil, fmt.Errorf("payload key: %w", ErrShort)
		}
		key := string(b[:kl])
		b = b[kl:]
		vl := int(binary.LittleEndian.Uint32(b))
		b = b[4:]
		if len(b) < vl {
			return nil, fmt.Errorf("payload %q: %w", key, ErrShort)
		}
		out = append(out, Blob{Key: key, Value: append([]byte(nil), b[:vl]...)})
		b = b[vl:]
	}
	return out, nil
}

// Encode renders f in the on-disk layout.
func Encode(f *File) ([]byte, error) {
	payload, err := f.Payload()
	if err != nil {
		return nil, err
	}
	meta := encodeMetadata(f.Meta)

	out := make([]byte, HeaderSize, HeaderSize+len(meta)+len(payload))
	copy(out[0:4], Magic)
	binary.LittleEndian.PutUint32(out[4:], Version)
	binary.LittleEndian.PutUint64(out[8:], uint64(len(payload)))
	binary.LittleEndian.PutUint64(out[16:], uint64(len(meta)))
	binary.LittleEndian.PutUint32(out[24:], crc32.ChecksumIEEE(payload))
	out = append(out, meta...)
	out = append(out, payload...)
	return out, nil
}

// ParseHeader validates the magic and version of b.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, ErrShort
	}
	if string(b[0:4]) != Magic {
		return h, ErrMagic
	}
	h.Version = binary.LittleEndian.Uint32(b[4:])
	if h.Version == 0 || h.Version > Version {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	h.PayloadLen = binary.LittleEndian.Uint64(b[8:])
	h.MetadataLen = binary.LittleEndian.Uint64(b[16:])
	h.CRC32 = binary.LittleEndian.Uint32(b[24:])
	return h, nil
}

func sections(b []byte) (Header, []byte, []byte, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return h, nil, nil, err
	}
	rest := b[HeaderSize:]
	if uint64(len(rest)) < h.MetadataLen || uint64(len(rest))-h.MetadataLen < h.PayloadLen {
		return h, nil, nil, ErrShort
	}
	meta := rest[:h.MetadataLen]
	payload := rest[h.MetadataLen : h.MetadataLen+h.PayloadLen]
	if crc32.ChecksumIEEE(payload) != h.CRC32 {
		return h, nil, nil, ErrChecksum
	}
	return h, meta, payload, nil
}

// Decode parses and checksums a full save file.
func Decode(b []byte) (*File, error) {
	_, metaRaw, payload, err := sections(b)
	if err != nil {
		return nil, err
	}
	meta, err := decodeMetadata(metaRaw)
	if err != nil {
		return nil, err
	}
	blobs, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}
	return &File{Meta: meta, Blobs: blobs}, nil
}

// Verify checks the header and payload checksum and returns the metadata.
func Verify(b []byte) (Metadata, error) {
	_, metaRaw, _, err := sections(b)
	if err != nil {
		return Metadata{}, err
	}
	return decodeMetadata(metaRaw)
}

// TempSuffix marks an in-progress write.
const TempSuffix = ".tmp"

// WriteFile writes f to path via a temporary file renamed into place.
func WriteFile(path string, f *File) error {
	b, err := Encode(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + TempSuffix
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return f, nil
}
