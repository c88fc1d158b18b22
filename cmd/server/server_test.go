package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nshruti113/url-risk-dashboard/internal/config"
	"github.com/nshruti113/url-risk-dashboard/internal/detection"
	"github.com/nshruti113/url-risk-dashboard/internal/ml"
	"github.com/nshruti113/url-risk-dashboard/internal/models"
	"github.com/nshruti113/url-risk-dashboard/internal/storage"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.GinMode = gin.TestMode
	if mutate != nil {
		mutate(&cfg)
	}
	provider := ml.StaticProvider{Err: errors.New("no artifacts")}
	s, err := NewServer(cfg, storage.NewMemoryStore(0), provider, nil)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestAnalyzeURLsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, http.MethodPost, "/api/analyze/urls", gin.H{
		"urls": []string{"/login?id=1' OR 1=1--", "https://www.google.com"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var batch detection.URLBatch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
	assert.True(t, batch.Degraded)
	assert.Equal(t, []string{detection.WarnModelUnavailable}, batch.Warnings)
	require.Len(t, batch.Assessments, 2)
	assert.Equal(t, 28, batch.Assessments[0].RiskScore)
	assert.Equal(t, models.RiskLow, batch.Assessments[0].RiskLevel)
	assert.Equal(t, 3, batch.Assessments[1].RiskScore)
}

func TestAnalyzeURLsRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Server.MaxBatchSize = 2 })

	w := doJSON(t, s, http.MethodPost, "/api/analyze/urls", gin.H{"nope": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/urls", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = doJSON(t, s, http.MethodPost, "/api/analyze/urls", gin.H{"urls": []string{"/a", "/b", "/c"}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAnalyzeEventsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, http.MethodPost, "/api/analyze/events", gin.H{
		"events": []gin.H{
			{"url": "/download?file=../../etc/passwd", "ip": "10.0.0.5"},
			{"url": "/home", "ip": "10.0.0.9"},
			{"url": "/search?q=%3Cscript%3Ealert(1)%3C/script%3E", "ip": "10.0.0.5"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Results []models.EventAssessment `json:"results"`
		Summary struct {
			Text        string `json:"summary"`
			TopIdentity string `json:"top_identity"`
		} `json:"summary"`
		Correlation map[string]json.RawMessage `json:"correlation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Results, 3)
	assert.Equal(t, 33, out.Results[0].RiskScore)
	assert.Equal(t, 53, out.Results[2].RiskScore)
	assert.Equal(t, models.StageExploitation, out.Results[2].Stage)
	assert.Equal(t, "10.0.0.5", out.Summary.TopIdentity)
	assert.Contains(t, out.Correlation, "10.0.0.5")
	assert.Contains(t, out.Correlation, "10.0.0.9")
}

func TestAnalyzeCSVEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	csvBody := "url,ip\n/login?id=1' OR 1=1--,10.0.0.7\n/home,10.0.0.8\n"

	t.Run("raw body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze/csv", strings.NewReader(csvBody))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var batch detection.EventBatch
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
		require.Len(t, batch.Assessments, 2)
		assert.Equal(t, "10.0.0.7", batch.Assessments[0].SourceIdentity)
	})

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "access.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(csvBody))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/analyze/csv", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing url column", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze/csv", strings.NewReader("ip,path\n1.2.3.4,/x\n"))
		req.Header.Set("Content-Type", "text/csv")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAlertsAndStats(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Detection.AlertLevel = models.RiskLow })

	w := doJSON(t, s, http.MethodPost, "/api/analyze/urls", gin.H{
		"urls": []string{"/login?id=1' OR 1=1--", "/home"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/alerts/recent?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts struct {
		Alerts []models.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	require.Len(t, alerts.Alerts, 2)

	w = doJSON(t, s, http.MethodGet, "/api/alerts/recent?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/stats/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "UNDER_ATTACK", summary["status"])
	assert.EqualValues(t, 2, summary["urls_analyzed"])
	assert.EqualValues(t, 1, summary["degraded_batches"])

	w = doJSON(t, s, http.MethodGet, "/api/stats/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Stats []models.WindowStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history.Stats, 1)
	assert.Equal(t, 1, history.Stats[0].Batches)
}

func TestSummaryNormalWithoutAlerts(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, http.MethodGet, "/api/stats/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "NORMAL", summary["status"])
	assert.EqualValues(t, 0, summary["urls_analyzed"])
}

func TestModelStatusHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	w := doJSON(t, s, http.MethodGet, "/api/model/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Model ml.Status `json:"model"`
		Mode  string    `json:"mode"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.Model.Loaded)
	assert.Equal(t, "no artifacts", status.Model.LastError)
	assert.Equal(t, "fallback", status.Mode)

	w = doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	doJSON(t, s, http.MethodPost, "/api/analyze/urls", gin.H{"urls": []string{"/home"}})
	w = doJSON(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "urlrisk_batches_total")
	assert.Contains(t, w.Body.String(), "urlrisk_degraded_batches_total")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze/urls", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketReceivesBatches(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.router)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return s.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	w := doJSON(t, s, http.MethodPost, "/api/analyze/urls", gin.H{"urls": []string{"/home"}})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "batch", msg.Type)
	assert.Equal(t, detection.KindURLs, msg.Payload["kind"])
	assert.EqualValues(t, 1, msg.Payload["urls"])

	s.hub.Close()
	assert.Equal(t, 0, s.hub.Len())
}
