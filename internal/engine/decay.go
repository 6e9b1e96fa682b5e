package engine

import (
	"github.com/lazypower/bitrot/internal/config"
	"github.com/lazypower/bitrot/internal/store"
)

// DecayEngine applies uniform random corruption.
//
// Each pass flips a coin per regular record with FileProbability; a record
// that comes up loses each character independently with CharProbability.
// Core records are never visited. A record eroded to nothing stays in the
// store as an empty record; only the QuotaManager removes records.
type DecayEngine struct {
	eroder
	FileProbability float64
	CharProbability float64
}

// Apply runs one pass with the configured probabilities.
func (d *DecayEngine) Apply() (PassResult, error) {
	return d.ApplyWith(d.FileProbability, d.CharProbability)
}

// ApplyWith runs one pass with explicit probabilities.
func (d *DecayEngine) ApplyWith(fileProbability, charProbability float64) (PassResult, error) {
	if err := config.CheckProbability("decay.file_probability", fileProbability); err != nil {
		return PassResult{}, err
	}
	if err := config.CheckProbability("decay.char_probability", charProbability); err != nil {
		return PassResult{}, err
	}
	return d.pass("decay", func(store.Record) (float64, float64) {
		return fileProbability, charProbability
	})
}
