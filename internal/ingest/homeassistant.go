package ingest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pvsizer/internal/model"
)

// HomeAssistantSource fetches hourly energy statistics over the Home
// Assistant WebSocket API (recorder/statistics_during_period). It asks for
// per-hour "change" values first and falls back to cumulative "sum"
// statistics, differencing them client-side.
type HomeAssistantSource struct {
	BaseURL    string // ws:// or wss:// endpoint of /api/websocket
	Token      string // long-lived access token
	PVEntity   string
	LoadEntity string
	SSLVerify  bool

	Log zerolog.Logger
}

const haHandshakeTimeout = 15 * time.Second

type haRequest struct {
	ID           int      `json:"id,omitempty"`
	Type         string   `json:"type"`
	AccessToken  string   `json:"access_token,omitempty"`
	StartTime    string   `json:"start_time,omitempty"`
	EndTime      string   `json:"end_time,omitempty"`
	StatisticIDs []string `json:"statistic_ids,omitempty"`
	Period       string   `json:"period,omitempty"`
	Types        []string `json:"types,omitempty"`
}

type haResponse struct {
	ID      int             `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

// haPoint is one statistics bucket. Start is either epoch milliseconds or
// an ISO timestamp depending on the HA version.
type haPoint struct {
	Start  json.RawMessage `json:"start"`
	Change *float64        `json:"change"`
	Sum    *float64        `json:"sum"`
}

func (s *HomeAssistantSource) HourlyPVLoad(ctx context.Context, start, end time.Time) ([]model.Sample, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := s.authenticate(conn); err != nil {
		return nil, err
	}

	pvHours, err := s.fetchHourlyChanges(conn, s.PVEntity, start, end, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.PVEntity, err)
	}
	loadHours, err := s.fetchHourlyChanges(conn, s.LoadEntity, start, end, 2)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.LoadEntity, err)
	}

	return mergeHourly(pvHours, loadHours), nil
}

func (s *HomeAssistantSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: haHandshakeTimeout}
	if strings.HasPrefix(s.BaseURL, "wss://") && !s.SSLVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	conn, resp, err := dialer.DialContext(ctx, s.BaseURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s (status %s): %w", s.BaseURL, resp.Status, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", s.BaseURL, err)
	}
	return conn, nil
}

// authenticate runs the auth_required/auth/auth_ok handshake.
func (s *HomeAssistantSource) authenticate(conn *websocket.Conn) error {
	var hello haResponse
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("reading hello: %w", err)
	}
	if hello.Type != "auth_required" {
		return fmt.Errorf("unexpected hello message type %q", hello.Type)
	}

	if err := conn.WriteJSON(haRequest{Type: "auth", AccessToken: s.Token}); err != nil {
		return fmt.Errorf("sending auth: %w", err)
	}

	var authResp haResponse
	if err := conn.ReadJSON(&authResp); err != nil {
		return fmt.Errorf("reading auth response: %w", err)
	}
	if authResp.Type != "auth_ok" {
		return fmt.Errorf("authentication failed: %s", authResp.Type)
	}
	return nil
}

// fetchHourlyChanges returns kWh-per-hour keyed by hour-aligned local time.
func (s *HomeAssistantSource) fetchHourlyChanges(conn *websocket.Conn, entity string, start, end time.Time, reqID int) (map[time.Time]float64, error) {
	points, err := s.statistics(conn, entity, start, end, reqID, "change")
	if err != nil {
		return nil, err
	}
	if hasChange(points) {
		return changesByHour(points), nil
	}

	// No per-hour change statistics for this entity; fall back to the
	// cumulative counter and difference it.
	s.Log.Debug().Str("entity", entity).Msg("no change statistics, falling back to cumulative sum")
	points, err = s.statistics(conn, entity, start, end, reqID+1000, "sum")
	if err != nil {
		return nil, err
	}
	return diffsByHour(points), nil
}

func (s *HomeAssistantSource) statistics(conn *websocket.Conn, entity string, start, end time.Time, reqID int, statType string) ([]haPoint, error) {
	req := haRequest{
		ID:           reqID,
		Type:         "recorder/statistics_during_period",
		StartTime:    start.Format(time.RFC3339),
		EndTime:      end.Format(time.RFC3339),
		StatisticIDs: []string{entity},
		Period:       "hour",
		Types:        []string{statType},
	}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("sending statistics request: %w", err)
	}

	resp, err := waitResult(conn, reqID)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("statistics request (%s) rejected by Home Assistant", statType)
	}
	return decodePoints(resp.Result), nil
}

// waitResult reads frames until the result matching the request id arrives,
// skipping unrelated event frames.
func waitResult(conn *websocket.Conn, reqID int) (*haResponse, error) {
	for {
		var resp haResponse
		if err := conn.ReadJSON(&resp); err != nil {
			return nil, fmt.Errorf("reading result: %w", err)
		}
		if resp.Type == "result" && resp.ID == reqID {
			return &resp, nil
		}
	}
}

// decodePoints normalizes the statistics result, which is either a map
// keyed by entity id or a list of blocks with a "data" array.
func decodePoints(raw json.RawMessage) []haPoint {
	if len(raw) == 0 {
		return nil
	}

	var byEntity map[string][]haPoint
	if err := json.Unmarshal(raw, &byEntity); err == nil {
		for _, pts := range byEntity {
			return pts
		}
		return nil
	}

	var blocks []struct {
		Data []haPoint `json:"data"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil && len(blocks) > 0 {
		return blocks[0].Data
	}
	return nil
}

func hasChange(points []haPoint) bool {
	for _, p := range points {
		if p.Change != nil {
			return true
		}
	}
	return false
}

func changesByHour(points []haPoint) map[time.Time]float64 {
	out := make(map[time.Time]float64, len(points))
	for _, p := range points {
		ts, ok := pointTime(p)
		if !ok {
			continue
		}
		v := 0.0
		if p.Change != nil && *p.Change > 0 {
			v = *p.Change
		}
		out[ts] = v
	}
	return out
}

// diffsByHour converts cumulative counter values to per-hour deltas,
// clamped non-negative so meter resets do not produce negative energy.
func diffsByHour(points []haPoint) map[time.Time]float64 {
	type stamped struct {
		ts  time.Time
		sum float64
	}
	ordered := make([]stamped, 0, len(points))
	for _, p := range points {
		ts, ok := pointTime(p)
		if !ok || p.Sum == nil {
			continue
		}
		ordered = append(ordered, stamped{ts: ts, sum: *p.Sum})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ts.Before(ordered[j].ts) })

	out := make(map[time.Time]float64, len(ordered))
	for i, p := range ordered {
		if i == 0 {
			out[p.ts] = 0
			continue
		}
		diff := p.sum - ordered[i-1].sum
		if diff < 0 {
			diff = 0
		}
		out[p.ts] = diff
	}
	return out
}

// pointTime parses a bucket start, accepting epoch milliseconds or ISO
// timestamps, normalized to hour-aligned local time.
func pointTime(p haPoint) (time.Time, bool) {
	if len(p.Start) == 0 {
		return time.Time{}, false
	}

	var ms float64
	if err := json.Unmarshal(p.Start, &ms); err == nil {
		return time.UnixMilli(int64(ms)).In(time.Local).Truncate(time.Hour), true
	}

	var iso string
	if err := json.Unmarshal(p.Start, &iso); err == nil {
		if ts, err := time.Parse(time.RFC3339, iso); err == nil {
			return ts.In(time.Local).Truncate(time.Hour), true
		}
	}
	return time.Time{}, false
}

// mergeHourly aligns the two entity series over the union of their hours;
// a missing value on either side counts as zero for that hour.
func mergeHourly(pvHours, loadHours map[time.Time]float64) []model.Sample {
	hours := make(map[time.Time]struct{}, len(pvHours)+len(loadHours))
	for h := range pvHours {
		hours[h] = struct{}{}
	}
	for h := range loadHours {
		hours[h] = struct{}{}
	}

	samples := make([]model.Sample, 0, len(hours))
	for h := range hours {
		samples = append(samples, model.Sample{
			Timestamp: h,
			PVKWh:     pvHours[h],
			LoadKWh:   loadHours[h],
		})
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return samples
}
