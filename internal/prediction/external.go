package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ExternalOracle delegates prediction to a model service over HTTP.
// The request timeout is enforced here; callers still fall back on any
// error.
type ExternalOracle struct {
	url    string
	client *http.Client
}

func NewExternalOracle(url string, timeout time.Duration) *ExternalOracle {
	return &ExternalOracle{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (o *ExternalOracle) PredictWaitTime(ctx context.Context, f Features) (Prediction, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("prediction service returned status %d", resp.StatusCode)
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode prediction: %w", err)
	}

	if prediction.WaitMinutes < 0 {
		return Prediction{}, fmt.Errorf("prediction service returned negative wait time: %d", prediction.WaitMinutes)
	}

	return prediction, nil
}
