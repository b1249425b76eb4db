package prediction

import (
	"context"
	"math/rand"
	"sync"

	"hospiq/pkg/model"
)

// Per-visit service minutes by counter type, used when the oracle has
// no better signal than queue length.
var baseServiceMinutes = map[string]int{
	model.CounterGeneral:     15,
	model.CounterCardiology:  25,
	model.CounterNeurology:   30,
	model.CounterOrthopedics: 20,
	model.CounterPediatrics:  15,
	model.CounterDermatology: 15,
	model.CounterEmergency:   10,
}

const defaultServiceMinutes = 15

// HeuristicOracle is the built-in estimator: queue depth times a
// per-type service time, scaled for peak hours, weekends and holidays,
// with bounded jitter. It is deliberately not a learned model.
type HeuristicOracle struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewHeuristicOracle() *HeuristicOracle {
	return &HeuristicOracle{
		rng: rand.New(rand.NewSource(rand.Int63())),
	}
}

func (o *HeuristicOracle) PredictWaitTime(_ context.Context, f Features) (Prediction, error) {
	perVisit, ok := baseServiceMinutes[f.CounterType]
	if !ok {
		perVisit = defaultServiceMinutes
	}

	wait := float64(f.CurrentQueueLength * perVisit)

	// Morning and mid-afternoon rushes.
	if (f.TimeOfDay >= 9 && f.TimeOfDay <= 11) || (f.TimeOfDay >= 14 && f.TimeOfDay <= 16) {
		wait *= 1.3
	}
	if f.DayOfWeek == 0 || f.DayOfWeek == 6 {
		wait *= 1.2
	}
	if f.IsHoliday {
		wait *= 1.5
	}
	if !f.DoctorAvailable {
		wait *= 1.4
	}

	// +/-10% jitter so identical queues don't echo identical numbers.
	o.mu.Lock()
	jitter := 0.9 + o.rng.Float64()*0.2
	o.mu.Unlock()
	wait *= jitter

	minutes := int(wait)
	if minutes < 0 {
		minutes = 0
	}

	confidence := 0.9 - 0.02*float64(f.CurrentQueueLength)
	if confidence < 0.3 {
		confidence = 0.3
	}

	return Prediction{WaitMinutes: minutes, Confidence: confidence}, nil
}
