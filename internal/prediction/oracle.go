package prediction

import (
	"context"

	"hospiq/pkg/config"
)

// Features are the inputs the oracle predicts from. They mirror what
// the booking workflow knows at booking time.
type Features struct {
	HospitalID         string `json:"hospital_id"`
	CounterID          string `json:"counter_id"`
	CurrentQueueLength int    `json:"current_queue_length"`
	TimeOfDay          int    `json:"time_of_day"` // hour 0-23
	DayOfWeek          int    `json:"day_of_week"` // 0=Sunday
	CounterType        string `json:"counter_type"`
	DoctorAvailable    bool   `json:"doctor_available"`
	WeatherCondition   string `json:"weather_condition,omitempty"`
	IsHoliday          bool   `json:"is_holiday"`
}

type Prediction struct {
	WaitMinutes int     `json:"wait_minutes"`
	Confidence  float64 `json:"confidence"`
}

// Oracle estimates patient wait times. Implementations are selected by
// configuration, never by type inspection; callers must treat failures
// as soft and fall back to their own estimate.
type Oracle interface {
	PredictWaitTime(ctx context.Context, f Features) (Prediction, error)
}

// New picks the oracle variant from configuration.
func New(cfg *config.Config) Oracle {
	if cfg.OracleMode == config.OracleModeExternal {
		return NewExternalOracle(cfg.OracleURL, cfg.OracleTimeout)
	}
	return NewHeuristicOracle()
}
