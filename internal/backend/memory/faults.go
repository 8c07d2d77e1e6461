package memory

import (
	"math/rand/v2"
	"sync"
)

// Op names a mutation that can be made to fail.
type Op string

const (
	OpMove   Op = "move"
	OpCreate Op = "create"
	OpUpdate Op = "update"
)

// Faults decides whether a mutation fails.
type Faults interface {
	Fail(op Op) bool
}

// FaultsFunc adapts a function to Faults.
type FaultsFunc func(op Op) bool

func (f FaultsFunc) Fail(op Op) bool { return f(op) }

// NoFaults never fails.
var NoFaults Faults = FaultsFunc(func(Op) bool { return false })

// FailAlways fails every listed op, or every op when none are listed.
func FailAlways(ops ...Op) Faults {
	return FaultsFunc(func(op Op) bool {
		if len(ops) == 0 {
			return true
		}
		for _, o := range ops {
			if o == op {
				return true
			}
		}
		return false
	})
}

// RandomFaults fails each mutation with a fixed probability.
type RandomFaults struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

// NewRandomFaults fails with probability rate. The same seed gives the same sequence.
func NewRandomFaults(rate float64, seed uint64) *RandomFaults {
	return &RandomFaults{rate: rate, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Fail implements Faults.
func (f *RandomFaults) Fail(Op) bool {
	if f.rate <= 0 {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < f.rate
}
