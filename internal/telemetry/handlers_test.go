// Sentinel - Anti-Cheat Detection and Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/sentinel/internal/anticheat"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

// mockEngine records calls. Verdicts are returned for every movement and
// kill; logErrs are returned by successive LogViolation calls.
type mockEngine struct {
	mu        sync.Mutex
	verdicts  []anticheat.Verdict
	trackErr  error
	logErrs   []error
	movements []anticheat.MovementSample
	kills     []anticheat.KillRecord
	reports   []anticheat.ViolationReport
	logCalls  int
	ended     []string
}

func (m *mockEngine) TrackMovement(_ string, s anticheat.MovementSample) ([]anticheat.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trackErr != nil {
		return nil, m.trackErr
	}
	m.movements = append(m.movements, s)
	return m.verdicts, nil
}

func (m *mockEngine) TrackKill(_ string, k anticheat.KillRecord) ([]anticheat.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trackErr != nil {
		return nil, m.trackErr
	}
	m.kills = append(m.kills, k)
	return m.verdicts, nil
}

func (m *mockEngine) VerdictReport(accountID, username, gameSession string, verdicts []anticheat.Verdict) (anticheat.ViolationReport, bool) {
	if len(verdicts) == 0 {
		return anticheat.ViolationReport{}, false
	}
	return anticheat.ViolationReport{
		AccountID:   accountID,
		Username:    username,
		Type:        verdicts[0].Type,
		Severity:    7,
		Details:     verdicts[0].Details,
		GameSession: gameSession,
	}, true
}

func (m *mockEngine) LogViolation(_ context.Context, r anticheat.ViolationReport) (*anticheat.LogResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.logCalls
	m.logCalls++
	if call < len(m.logErrs) && m.logErrs[call] != nil {
		return nil, m.logErrs[call]
	}
	m.reports = append(m.reports, r)
	return &anticheat.LogResult{Action: anticheat.ActionWarning, ViolationCount: len(m.reports)}, nil
}

func (m *mockEngine) EndSession(accountID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, accountID)
}

func (m *mockEngine) snapshot() (reports []anticheat.ViolationReport, logCalls int, ended []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]anticheat.ViolationReport(nil), m.reports...), m.logCalls, append([]string(nil), m.ended...)
}

func newMessage(t *testing.T, v interface{}) *message.Message {
	t.Helper()
	payload, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return message.NewMessage(watermill.NewUUID(), payload)
}

func validMovement() *MovementEvent {
	return &MovementEvent{
		AccountID:   "acc-1",
		Username:    "PlayerOne",
		GameSession: "match-7",
		Position:    Point{X: 10, Y: 0, Z: 5},
		TimestampMs: 1_773_489_600_000,
	}
}

func telemetryCount(topic, result string) float64 {
	return testutil.ToFloat64(metrics.TelemetryMessages.WithLabelValues(topic, result))
}

var speedVerdict = anticheat.Verdict{Type: anticheat.ViolationSpeedHack, Details: map[string]interface{}{"value": 2121.3}}

func TestHandlers_MovementEmitsReport(t *testing.T) {
	engine := &mockEngine{verdicts: []anticheat.Verdict{speedVerdict}}
	h := NewHandlers(engine)

	msg := newMessage(t, validMovement())
	middleware.SetCorrelationID("corr-1", msg)

	out, err := h.Movement(msg)
	if err != nil {
		t.Fatalf("Movement failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("emitted %d messages, want 1", len(out))
	}
	if got := middleware.MessageCorrelationID(out[0]); got != "corr-1" {
		t.Errorf("correlation id = %q, want corr-1", got)
	}

	var report anticheat.ViolationReport
	if err := json.Unmarshal(out[0].Payload, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.AccountID != "acc-1" || report.Username != "PlayerOne" || report.GameSession != "match-7" || report.Type != anticheat.ViolationSpeedHack {
		t.Errorf("report = %+v", report)
	}

	if len(engine.movements) != 1 {
		t.Fatalf("tracked %d samples, want 1", len(engine.movements))
	}
	want := time.UnixMilli(1_773_489_600_000).UTC()
	if s := engine.movements[0]; !s.Timestamp.Equal(want) || s.Position.X != 10 {
		t.Errorf("sample = %+v", s)
	}
}

func TestHandlers_NoVerdictsNoReport(t *testing.T) {
	h := NewHandlers(&mockEngine{})
	before := telemetryCount(TopicKill, resultProcessed)

	out, err := h.Kill(newMessage(t, &KillEvent{
		KillerAccountID: "acc-1",
		KillerUsername:  "PlayerOne",
		VictimAccountID: "acc-2",
		Distance:        30,
	}))
	if err != nil || len(out) != 0 {
		t.Fatalf("Kill = %v, %v; want no output", out, err)
	}
	if got := telemetryCount(TopicKill, resultProcessed) - before; got != 1 {
		t.Errorf("processed delta = %v, want 1", got)
	}
}

func TestHandlers_InvalidPayloadsAreAcked(t *testing.T) {
	engine := &mockEngine{verdicts: []anticheat.Verdict{speedVerdict}}
	h := NewHandlers(engine)

	tests := []struct {
		name    string
		topic   string
		payload []byte
		run     func(*message.Message) error
	}{
		{"movement not json", TopicMovement, []byte("{"), func(m *message.Message) error { _, err := h.Movement(m); return err }},
		{"movement missing account", TopicMovement, []byte(`{"username":"PlayerOne"}`), func(m *message.Message) error { _, err := h.Movement(m); return err }},
		{"kill negative distance", TopicKill, []byte(`{"killer_account_id":"a","killer_username":"b","victim_account_id":"c","distance":-1}`), func(m *message.Message) error { _, err := h.Kill(m); return err }},
		{"violation bad severity", TopicViolation, []byte(`{"account_id":"a","username":"b","type":"aimbot","severity":11}`), h.Violation},
		{"violation unknown type", TopicViolation, []byte(`{"account_id":"a","username":"b","type":"wallhack","severity":3}`), h.Violation},
		{"session end bad account", TopicSessionEnd, []byte(`{"account_id":"has space"}`), h.SessionEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := telemetryCount(tt.topic, resultInvalid)
			if err := tt.run(message.NewMessage(watermill.NewUUID(), tt.payload)); err != nil {
				t.Errorf("invalid payload returned %v, want nil (ack)", err)
			}
			if got := telemetryCount(tt.topic, resultInvalid) - before; got != 1 {
				t.Errorf("invalid delta = %v, want 1", got)
			}
		})
	}

	reports, calls, ended := engine.snapshot()
	if len(engine.movements) != 0 || len(engine.kills) != 0 || calls != 0 || len(reports) != 0 || len(ended) != 0 {
		t.Error("engine must not be called for invalid payloads")
	}
}

func TestHandlers_EngineErrors(t *testing.T) {
	t.Run("invalid input is acked", func(t *testing.T) {
		h := NewHandlers(&mockEngine{trackErr: anticheat.ErrInvalidInput})
		if _, err := h.Movement(newMessage(t, validMovement())); err != nil {
			t.Errorf("err = %v, want nil", err)
		}
	})

	report := &anticheat.ViolationReport{AccountID: "acc-1", Username: "PlayerOne", Type: anticheat.ViolationAimbot, Severity: 5}

	t.Run("unrecorded violation is returned", func(t *testing.T) {
		boom := errors.New("connection reset")
		h := NewHandlers(&mockEngine{logErrs: []error{fmt.Errorf("%w: %w", anticheat.ErrViolationNotRecorded, boom)}})
		if err := h.Violation(newMessage(t, report)); !errors.Is(err, boom) {
			t.Errorf("err = %v, want wrapped store error", err)
		}
	})

	t.Run("failure after the row exists is acked", func(t *testing.T) {
		engine := &mockEngine{logErrs: []error{errors.New("record violation action: connection reset")}}
		h := NewHandlers(engine)
		before := telemetryCount(TopicViolation, resultFailed)

		if err := h.Violation(newMessage(t, report)); err != nil {
			t.Errorf("err = %v, want nil (ack)", err)
		}
		if got := telemetryCount(TopicViolation, resultFailed) - before; got != 1 {
			t.Errorf("failed delta = %v, want 1", got)
		}
		if _, calls, _ := engine.snapshot(); calls != 1 {
			t.Errorf("LogViolation calls = %d, want 1", calls)
		}
	})
}

func TestHandlers_PassMessageUUIDAsEventID(t *testing.T) {
	engine := &mockEngine{}
	h := NewHandlers(engine)

	move := newMessage(t, validMovement())
	if _, err := h.Movement(move); err != nil {
		t.Fatalf("Movement failed: %v", err)
	}
	kill := newMessage(t, &KillEvent{KillerAccountID: "acc-1", KillerUsername: "PlayerOne", VictimAccountID: "acc-2", Distance: 30})
	if _, err := h.Kill(kill); err != nil {
		t.Fatalf("Kill failed: %v", err)
	}

	if len(engine.movements) != 1 || engine.movements[0].EventID != move.UUID {
		t.Errorf("movement event id = %+v, want %s", engine.movements, move.UUID)
	}
	if len(engine.kills) != 1 || engine.kills[0].EventID != kill.UUID {
		t.Errorf("kill event id = %+v, want %s", engine.kills, kill.UUID)
	}
}

func TestHandlers_RedeliveredKillTrackedOnce(t *testing.T) {
	engine, err := anticheat.NewEngine(anticheat.DefaultConfig(), anticheat.Dependencies{Store: &anticheat.DuckDBStore{}})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer engine.Close()
	h := NewHandlers(engine)

	msg := newMessage(t, &KillEvent{KillerAccountID: "acc-1", KillerUsername: "PlayerOne", VictimAccountID: "acc-2", Distance: 30, Headshot: true})
	for i := 0; i < 2; i++ {
		if _, err := h.Kill(msg.Copy()); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	stats, _ := engine.Tracker().Stats("acc-1")
	if stats.TotalKills != 1 || stats.HeadshotCount != 1 {
		t.Errorf("stats = %+v, want one kill", stats)
	}
	if n := len(engine.Tracker().KillSnapshot("acc-1")); n != 1 {
		t.Errorf("kill window = %d, want 1", n)
	}
}

func TestHandlers_SessionEnd(t *testing.T) {
	engine := &mockEngine{}
	h := NewHandlers(engine)

	if err := h.SessionEnd(newMessage(t, &SessionEnded{AccountID: "acc-1"})); err != nil {
		t.Fatalf("SessionEnd failed: %v", err)
	}
	if _, _, ended := engine.snapshot(); len(ended) != 1 || ended[0] != "acc-1" {
		t.Errorf("ended = %v", ended)
	}
}

func TestFromMillis(t *testing.T) {
	if !fromMillis(0).IsZero() {
		t.Error("zero millis should map to the zero time")
	}
	if got := fromMillis(1500); !got.Equal(time.Unix(1, 500_000_000)) {
		t.Errorf("fromMillis(1500) = %v", got)
	}
}
