package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nshruti113/url-risk-dashboard/internal/ingest"
	"github.com/nshruti113/url-risk-dashboard/internal/logging"
)

func newTestSimulator(url string) *Simulator {
	return NewSimulator(url, 42, logging.InitWriter(io.Discard, "test", "", "error"))
}

func TestCampaignsKeepAttackerOrder(t *testing.T) {
	s := newTestSimulator("")

	for _, c := range campaignSequence {
		rows := s.Batch(20, c, "198.51.100.7")
		campaign := s.GenerateCampaign(c, "x")

		var attacker []string
		for _, r := range rows {
			if r["ip"] == "198.51.100.7" {
				attacker = append(attacker, r["url"].(string))
			}
		}
		require.Len(t, attacker, len(campaign), c)
		for i, r := range campaign {
			assert.Equal(t, r["url"], attacker[i], c)
		}
		assert.Len(t, rows, 20+len(campaign))
	}
}

func TestRowsMapOntoEvents(t *testing.T) {
	s := newTestSimulator("")
	rows := s.GenerateCampaign(CampaignSQLInjection, "198.51.100.7")

	maps := make([]map[string]any, len(rows))
	for i, r := range rows {
		maps[i] = r
	}
	events := ingest.Mapper{}.FromMaps(maps)
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, "198.51.100.7", ev.SourceIdentity)
		assert.NotEmpty(t, ev.RequestID)
		assert.NotNil(t, ev.StatusCode)
		assert.Empty(t, ev.Metadata)
	}
}

func TestSendBatch(t *testing.T) {
	var got struct {
		Events []map[string]any `json:"events"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/analyze/events", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestSimulator(srv.URL)
	require.NoError(t, s.SendBatch(context.Background(), s.GenerateNormalTraffic(5)))
	assert.Len(t, got.Events, 5)
}

func TestSendBatchReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := newTestSimulator(srv.URL)
	assert.Error(t, s.SendBatch(context.Background(), s.GenerateNormalTraffic(1)))
}
