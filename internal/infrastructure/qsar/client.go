// Package qsar is the client for the JSON QSAR prediction services (EPI
// Suite, SPARC and the measured-data service). They share one wire shape.
package qsar

import (
	"context"
	"encoding/json"

	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/httpclient"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Client posts property requests to one QSAR service.
type Client struct {
	http *httpclient.Client
	path string
}

// NewClient creates a client for the service named name.
func NewClient(name string, cfg config.QSARConfig, logger logging.Logger, metrics *prometheus.BrokerMetrics, opts ...httpclient.Option) *Client {
	base := []httpclient.Option{httpclient.WithLogger(logger), httpclient.WithMetrics(metrics)}
	return &Client{
		http: httpclient.New(httpclient.Config{
			Service: name,
			BaseURL: cfg.URL,
			Timeout: cfg.Timeout,
		}, append(base, opts...)...),
		path: cfg.Path,
	}
}

// Query is one property request.
type Query struct {
	Structure string  `json:"structure"`
	Prop      string  `json:"prop"`
	Method    string  `json:"method,omitempty"`
	PH        float64 `json:"ph,omitempty"`
}

type result struct {
	Data json.RawMessage `json:"data"`
}

// Calculate returns the service's "data" value for q, undecoded.
func (c *Client) Calculate(ctx context.Context, q Query) (json.RawMessage, error) {
	var out result
	if err := c.http.PostJSON(ctx, q.Prop, c.path, q, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || string(out.Data) == "null" {
		return nil, errors.MalformedResponse("QSAR response has no data")
	}
	return out.Data, nil
}
