package service

import (
	"context"
	"time"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsRecorder receives service-level measurements
type MetricsRecorder interface {
	RecordTransition(from, trigger string, ok bool)
	RecordObserverFailure(eventType string)
	RecordUpload(result string, size int64)
}

type nopMetrics struct{}

func (nopMetrics) RecordTransition(string, string, bool) {}
func (nopMetrics) RecordObserverFailure(string)          {}
func (nopMetrics) RecordUpload(string, int64)            {}

// settings holds the knobs shared by every service
type settings struct {
	now      func() time.Time
	location *time.Location
	metrics  MetricsRecorder
}

// Option configures a service
type Option func(*settings)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the business time zone used for "today" and reference IDs
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(s *settings) {
		if m != nil {
			s.metrics = m
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		now:      time.Now,
		location: time.UTC,
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// today returns midnight of the current business day
func (s settings) today() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// publisher hands committed events to the observer bus.
// Observer failures are logged and counted, never returned.
type publisher struct {
	dispatcher dispatcher.Dispatcher
	metrics    MetricsRecorder
	logger     Logger
}

func (p publisher) publish(ctx context.Context, evt *event.Event) {
	if p.dispatcher == nil || evt == nil {
		return
	}
	if info, ok := clientInfoFrom(ctx); ok {
		evt = evt.WithPayload(payloadIPAddress, info.IPAddress).WithPayload(payloadUserAgent, info.UserAgent)
	}
	if err := p.dispatcher.Dispatch(ctx, evt); err != nil {
		p.logger.Error("Post-commit observer failed",
			"error", err,
			"event_type", evt.Type.String(),
			"entity_type", evt.EntityType,
			"entity_id", evt.EntityID)
		p.metrics.RecordObserverFailure(evt.Type.String())
	}
}

const (
	payloadIPAddress = "ip_address"
	payloadUserAgent = "user_agent"
)

// ClientInfo describes the caller's network origin for the audit trail
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type clientInfoKey struct{}

// WithClientInfo attaches the caller's IP address and user agent to ctx
func WithClientInfo(ctx context.Context, ipAddress, userAgent string) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, ClientInfo{IPAddress: ipAddress, UserAgent: userAgent})
}

func clientInfoFrom(ctx context.Context) (ClientInfo, bool) {
	info, ok := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info, ok
}
