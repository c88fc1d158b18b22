package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nshruti113/url-risk-dashboard/internal/config"
	"github.com/nshruti113/url-risk-dashboard/internal/ingest"
	"github.com/nshruti113/url-risk-dashboard/internal/logging"
	"github.com/nshruti113/url-risk-dashboard/internal/ml"
	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

func analyze(t *testing.T, mode, input string) ([]byte, error) {
	t.Helper()
	var out bytes.Buffer
	provider := ml.StaticProvider{Err: errors.New("missing")}
	logger := logging.InitWriter(io.Discard, "test", "", "error")
	err := run(context.Background(), config.Default(), provider, options{mode: mode}, strings.NewReader(input), &out, logger)
	return out.Bytes(), err
}

func TestRunURLs(t *testing.T) {
	raw, err := analyze(t, modeURLs, "/login?id=1' OR 1=1--\n\n  https://www.google.com  \n")
	require.NoError(t, err)

	var batch struct {
		Degraded bool                    `json:"degraded"`
		Results  []models.RiskAssessment `json:"results"`
	}
	require.NoError(t, json.Unmarshal(raw, &batch))
	assert.True(t, batch.Degraded)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, 28, batch.Results[0].RiskScore)
	assert.Equal(t, "https://www.google.com", batch.Results[1].URL)
}

func TestRunCSV(t *testing.T) {
	raw, err := analyze(t, modeCSV, "ip,url\n10.0.0.5,/download?file=../../etc/passwd\n10.0.0.5,/search?q=%3Cscript%3Ealert(1)%3C/script%3E\n")
	require.NoError(t, err)

	var batch struct {
		Results []models.EventAssessment `json:"results"`
		Summary struct {
			Text string `json:"summary"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(raw, &batch))
	require.Len(t, batch.Results, 2)
	assert.Equal(t, 53, batch.Results[1].RiskScore)
	assert.Contains(t, batch.Summary.Text, "Most activity observed from 10.0.0.5")
}

func TestRunErrors(t *testing.T) {
	_, err := analyze(t, modeCSV, "ip,path\n1.2.3.4,/x\n")
	assert.ErrorIs(t, err, ingest.ErrNoURLColumn)

	_, err = analyze(t, "xml", "")
	assert.ErrorContains(t, err, "unknown mode")
}
