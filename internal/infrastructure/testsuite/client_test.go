package testsuite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/CTS-Broker/internal/config"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/httpclient"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/TEST/FDAMethod/WaterSolubility", r.URL.Path)
		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CCO", body["identifiers"]["SMILES"])
		w.Write([]byte(`{"properties": {"WaterSolubility": 0.77}}`))
	}))
	defer srv.Close()

	c := NewClient(config.TestSuiteConfig{URL: srv.URL, Method: "FDAMethod", Timeout: time.Second}, nil, nil)
	p, err := c.Predict(context.Background(), "WaterSolubility", "CCO")
	require.NoError(t, err)
	v, ok := p.Value("WaterSolubility")
	assert.True(t, ok)
	assert.Equal(t, 0.77, v)
}

func TestPredict_MissingProperty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"properties": {}}`))
	}))
	defer srv.Close()

	c := NewClient(config.TestSuiteConfig{URL: srv.URL, Method: "FDAMethod"}, nil, nil)
	_, err := c.Predict(context.Background(), "MeltingPoint", "CCO")
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedResponse))
}

func TestPredict_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "could not process", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(config.TestSuiteConfig{URL: srv.URL, Method: "FDAMethod"}, nil, nil)
	_, err := c.Predict(context.Background(), "MeltingPoint", "CCO")
	assert.Equal(t, http.StatusBadRequest, httpclient.StatusCode(err))
}
