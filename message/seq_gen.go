package message

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync/atomic"
)

// SeqGenerator allocates sequence numbers for one logical connection.
//
// The starting point is randomized so that a restarted host does not reuse
// the numbers of its previous run while stale replies may still be in
// flight. It is safe for concurrent use.
type SeqGenerator struct {
	seq atomic.Uint32
}

// NewSeqGenerator returns a generator seeded from crypto/rand.
func NewSeqGenerator() *SeqGenerator {
	gen := &SeqGenerator{}

	var buf [2]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err == nil {
		gen.seq.Store(uint32(binary.BigEndian.Uint16(buf[:])))
	}

	return gen
}

// NewSeqGeneratorAt returns a generator whose first Next value is start+1.
func NewSeqGeneratorAt(start SeqNum) *SeqGenerator {
	gen := &SeqGenerator{}
	gen.seq.Store(uint32(start))

	return gen
}

// Next returns the next sequence number. Zero is skipped on wrap-around.
func (g *SeqGenerator) Next() SeqNum {
	for {
		seq := SeqNum(g.seq.Add(1))
		if seq != 0 {
			return seq
		}
	}
}
