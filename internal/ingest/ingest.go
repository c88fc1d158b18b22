// Package ingest maps upstream access-log rows onto events.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// Recognised columns. Anything else lands in Event.Metadata.
var knownColumns = map[string]struct{}{
	"timestamp":   {},
	"ts":          {},
	"ip":          {},
	"source_ip":   {},
	"method":      {},
	"url":         {},
	"status_code": {},
	"user_agent":  {},
	"referer":     {},
	"request_id":  {},
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
	"2006-01-02",
}

// ErrNoURLColumn is returned for CSV input without a url header.
var ErrNoURLColumn = errors.New("csv has no url column")

// Mapper converts rows to events. Now stamps rows without a usable
// timestamp; nil means time.Now.
type Mapper struct {
	Now func() time.Time
}

func (m Mapper) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}

// FromMap builds an event from a decoded JSON object.
func (m Mapper) FromMap(row map[string]any) models.Event {
	str := func(key string) string { return stringify(row[key]) }

	ev := models.Event{
		URL:            str("url"),
		Timestamp:      m.timestamp(firstNonEmpty(row["timestamp"], row["ts"])),
		StatusCode:     statusCode(row["status_code"]),
		SourceIdentity: identity(str("ip"), str("source_ip")),
		UserAgent:      strings.TrimSpace(str("user_agent")),
		Method:         method(str("method")),
		Referer:        strings.TrimSpace(str("referer")),
		RequestID:      strings.TrimSpace(str("request_id")),
	}
	for k, v := range row {
		if _, ok := knownColumns[k]; ok || v == nil {
			continue
		}
		if ev.Metadata == nil {
			ev.Metadata = make(map[string]string)
		}
		ev.Metadata[k] = stringify(v)
	}
	return ev
}

// FromMaps maps every row in order.
func (m Mapper) FromMaps(rows []map[string]any) []models.Event {
	out := make([]models.Event, len(rows))
	for i, row := range rows {
		out[i] = m.FromMap(row)
	}
	return out
}

// ReadCSV reads a headed CSV access log. Empty cells count as absent.
func (m Mapper) ReadCSV(r io.Reader) ([]models.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoURLColumn
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	if !slices.Contains(header, "url") {
		return nil, ErrNoURLColumn
	}

	var events []models.Event
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) && col != "" && strings.TrimSpace(rec[i]) != "" {
				row[col] = rec[i]
			}
		}
		events = append(events, m.FromMap(row))
	}
	return events, nil
}

func (m Mapper) timestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case float64:
		return unixTime(t)
	case int:
		return time.Unix(int64(t), 0).UTC()
	case int64:
		return time.Unix(t, 0).UTC()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return unixTime(f)
		}
	}
	return m.now()
}

func unixTime(f float64) time.Time {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

func statusCode(v any) *int {
	var code int
	switch c := v.(type) {
	case float64:
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil
		}
		code = int(c)
	case int:
		code = c
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		code = int(f)
	default:
		return nil
	}
	return &code
}

func identity(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return models.UnknownIdentity
}

func method(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return "GET"
	}
	return m
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func firstNonEmpty(vals ...any) any {
	for _, v := range vals {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}
