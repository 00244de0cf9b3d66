package sampling

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
)

// Stream labels keep the base Monte Carlo and the phasing extension on disjoint sub-streams.
const (
	LabelDraw    = "draw"
	LabelPhasing = "phasing"
)

// NewStream returns an independent PCG sub-stream keyed by (seed, label, scenario, draw).
// Keying by scenario name rather than position means adding or removing a scenario
// never shifts another scenario's random numbers.
func NewStream(seed uint64, label, scenario string, draw int) *rand.PCG {
	return rand.NewPCG(seed, streamKey(label, scenario, draw))
}

func streamKey(label, scenario string, draw int) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(label)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(scenario)
	_, _ = d.Write([]byte{0})
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(draw))
	_, _ = d.Write(buf[:])
	return d.Sum64()
}
