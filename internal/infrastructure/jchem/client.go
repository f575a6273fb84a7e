// Package jchem is the client for the JChem web services and the structure
// standardizer. It implements the standardization and tautomer resolution
// capabilities the filter pipeline consumes, and the property calculations
// behind the chemaxon calculator.
package jchem

import (
	"context"

	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/domain/structure"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/httpclient"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

// Client talks to the standardizer (EFS) and JChem services.
type Client struct {
	cfg    config.JchemConfig
	jchem  *httpclient.Client
	efs    *httpclient.Client
	logger logging.Logger
}

var (
	_ structure.Standardizer     = (*Client)(nil)
	_ structure.TautomerResolver = (*Client)(nil)
)

// NewClient creates a Client. opts apply to both underlying transports.
func NewClient(cfg config.JchemConfig, logger logging.Logger, metrics *prometheus.BrokerMetrics, opts ...httpclient.Option) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	base := []httpclient.Option{httpclient.WithLogger(logger), httpclient.WithMetrics(metrics)}
	opts = append(base, opts...)

	transport := func(service, url string) *httpclient.Client {
		return httpclient.New(httpclient.Config{
			Service:         service,
			BaseURL:         url,
			Timeout:         cfg.Timeout,
			MaxRetries:      cfg.MaxRetries,
			RetryWaitMin:    cfg.RetryBackoff,
			UnavailableCode: errors.ErrCodeStandardizerUnavailable,
		}, opts...)
	}

	return &Client{
		cfg:    cfg,
		jchem:  transport("jchem", cfg.URL),
		efs:    transport("efs", cfg.EFSURL),
		logger: logger.Named("jchem"),
	}
}

type standardizeRequest struct {
	Structure string   `json:"structure"`
	Actions   []string `json:"actions"`
}

// ApplyActions applies actions in one standardizer request.
func (c *Client) ApplyActions(ctx context.Context, smiles string, actions []structure.Action) (*structure.ActionResult, error) {
	var out structure.ActionResult
	req := standardizeRequest{Structure: smiles, Actions: structure.ActionNames(actions)}
	if err := c.efs.PostJSON(ctx, "standardize", c.cfg.StandardizerEndpoint, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type detailRequest struct {
	Structures []detailStructure `json:"structures"`
	Display    detailDisplay     `json:"display"`
}

type detailStructure struct {
	Structure string `json:"structure"`
}

type detailDisplay struct {
	Include          []string          `json:"include"`
	AdditionalFields map[string]string `json:"additionalFields"`
	Parameters       map[string]string `json:"parameters"`
}

// GetMass looks up mass and identity details for smiles.
func (c *Client) GetMass(ctx context.Context, smiles string) (*structure.MassResult, error) {
	req := detailRequest{
		Structures: []detailStructure{{Structure: smiles}},
		Display: detailDisplay{
			Include: []string{"structureData"},
			AdditionalFields: map[string]string{
				"formula":   "chemicalTerms(formula)",
				"iupac":     "chemicalTerms(name)",
				"mass":      "chemicalTerms(mass)",
				"exactMass": "chemicalTerms(exactMass)",
				"smiles":    "chemicalTerms(molString('smiles'))",
			},
			Parameters: map[string]string{"structureData": "smiles"},
		},
	}

	var out structure.MassResult
	if err := c.jchem.PostJSON(ctx, "mass", c.cfg.DetailEndpoint, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveMajorTautomer returns the major tautomer of smiles.
func (c *Client) ResolveMajorTautomer(ctx context.Context, smiles string) (*structure.TautomerResult, error) {
	params := PropertyTautomerization.Params()
	params["calculationType"] = "MAJOR"

	var out structure.TautomerResult
	if err := c.calculate(ctx, PropertyTautomerization, smiles, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PKa runs the pKa calculation.
func (c *Client) PKa(ctx context.Context, smiles string) (*PKaResult, error) {
	var out PKaResult
	if err := c.calculate(ctx, PropertyPKa, smiles, PropertyPKa.Params(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Solubility runs the water solubility calculation.
func (c *Client) Solubility(ctx context.Context, smiles string) (*SolubilityResult, error) {
	var out SolubilityResult
	if err := c.calculate(ctx, PropertySolubility, smiles, PropertySolubility.Params(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogP runs the pH-independent octanol/water partition calculation.
func (c *Client) LogP(ctx context.Context, smiles, method string) (*LogPResult, error) {
	var out LogPResult
	if err := c.calculate(ctx, PropertyLogP, smiles, withMethod(PropertyLogP, method), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogD runs the pH-dependent octanol/water distribution calculation.
func (c *Client) LogD(ctx context.Context, smiles, method string) (*LogDResult, error) {
	var out LogDResult
	if err := c.calculate(ctx, PropertyLogD, smiles, withMethod(PropertyLogD, method), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func withMethod(p Property, method string) map[string]interface{} {
	params := p.Params()
	if method != "" {
		params["method"] = method
	}
	return params
}

type calculateRequest struct {
	Structure  string                 `json:"structure"`
	Parameters map[string]interface{} `json:"parameters"`
}

// calculate posts a property calculation asking for SMILES structure data
// and an image in the result.
func (c *Client) calculate(ctx context.Context, p Property, smiles string, params map[string]interface{}, out interface{}) error {
	params["result-display"] = map[string]interface{}{
		"include":    []string{"structureData", "image"},
		"parameters": map[string]string{"structureData": "smiles"},
	}
	c.logger.WithContext(ctx).Debug("jchem calculation",
		logging.String(logging.FieldProperty, p.Name),
		logging.String(logging.FieldStructure, smiles))
	return c.jchem.PostJSON(ctx, p.Name, p.Path, calculateRequest{Structure: smiles, Parameters: params}, out)
}
