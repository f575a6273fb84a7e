// Package testsuite is the client for the TEST toxicity estimation service.
package testsuite

import (
	"context"
	"fmt"
	"net/url"

	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/httpclient"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Missing is the value TEST reports when it has no estimate.
const Missing = -9999.0

// Client posts predictions to TEST.
type Client struct {
	http   *httpclient.Client
	method string
}

func NewClient(cfg config.TestSuiteConfig, logger logging.Logger, metrics *prometheus.BrokerMetrics, opts ...httpclient.Option) *Client {
	base := []httpclient.Option{httpclient.WithLogger(logger), httpclient.WithMetrics(metrics)}
	return &Client{
		http: httpclient.New(httpclient.Config{
			Service: "test",
			BaseURL: cfg.URL,
			Timeout: cfg.Timeout,
		}, append(base, opts...)...),
		method: cfg.Method,
	}
}

type predictRequest struct {
	Identifiers identifiers `json:"identifiers"`
}

type identifiers struct {
	SMILES string `json:"SMILES"`
}

// Prediction is the TEST response.
type Prediction struct {
	Properties map[string]float64 `json:"properties"`
}

// Value returns the estimate for key.
func (p *Prediction) Value(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.Properties[key]
	return v, ok
}

// Predict asks TEST for property key of smiles using the configured method.
func (c *Client) Predict(ctx context.Context, key, smiles string) (*Prediction, error) {
	path := fmt.Sprintf("/api/TEST/%s/%s", url.PathEscape(c.method), url.PathEscape(key))

	var out Prediction
	if err := c.http.PostJSON(ctx, key, path, predictRequest{Identifiers: identifiers{SMILES: smiles}}, &out); err != nil {
		return nil, err
	}
	if _, ok := out.Value(key); !ok {
		return nil, errors.MalformedResponse("TEST response has no " + key + " property")
	}
	return &out, nil
}
