package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dannytrann/pearly-nail-salon-next/internal/booking"
	"github.com/dannytrann/pearly-nail-salon-next/internal/observability/metrics"
	"github.com/dannytrann/pearly-nail-salon-next/pkg/logging"
)

var tracer = otel.Tracer("pearly.internal.availability")

const (
	defaultProviderTimeout  = 10 * time.Second
	defaultMaxConcurrent    = 8
	defaultSearchBatchDays  = 7
	defaultEmptyBatchLimit  = 2
	defaultSearchMaxDays    = 30
	defaultSearchMaxResults = 3
)

// Settings are the per-salon knobs the engine reads. They are passed in
// explicitly; nothing is read from globals.
type Settings struct {
	LocationID           string
	Location             *time.Location
	Hours                WeeklyHours
	CandidateMode        CandidateMode
	ProviderTimeout      time.Duration
	MaxConcurrentQueries int
	SearchBatchDays      int
	EmptyBatchLimit      int
	SearchMaxDays        int
	SearchMaxResults     int
}

func (s Settings) withDefaults() Settings {
	if s.Location == nil {
		s.Location = time.UTC
	}
	if s.CandidateMode == "" {
		s.CandidateMode = CandidateGrid
	}
	if s.ProviderTimeout <= 0 {
		s.ProviderTimeout = defaultProviderTimeout
	}
	if s.MaxConcurrentQueries <= 0 {
		s.MaxConcurrentQueries = defaultMaxConcurrent
	}
	if s.SearchBatchDays <= 0 {
		s.SearchBatchDays = defaultSearchBatchDays
	}
	if s.EmptyBatchLimit <= 0 {
		s.EmptyBatchLimit = defaultEmptyBatchLimit
	}
	if s.SearchMaxDays <= 0 {
		s.SearchMaxDays = defaultSearchMaxDays
	}
	if s.SearchMaxResults <= 0 {
		s.SearchMaxResults = defaultSearchMaxResults
	}
	return s
}

// Engine runs availability queries against a scheduling provider.
type Engine struct {
	provider booking.Provider
	settings Settings
	logger   *logging.Logger
	metrics  *metrics.AvailabilityMetrics
}

// NewEngine creates an engine; m may be nil.
func NewEngine(provider booking.Provider, settings Settings, logger *logging.Logger, m *metrics.AvailabilityMetrics) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		provider: provider,
		settings: settings.withDefaults(),
		logger:   logger,
		metrics:  m,
	}
}

// WithSettings returns a copy of the engine bound to other settings.
func (e *Engine) WithSettings(settings Settings) *Engine {
	clone := *e
	clone.settings = settings.withDefaults()
	return &clone
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings { return e.settings }

// DayStart returns local midnight of t in the salon location.
func (e *Engine) DayStart(t time.Time) time.Time {
	local := t.In(e.settings.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.settings.Location)
}

// Result is the answer for one date.
type Result struct {
	Date       time.Time
	Slots      []CandidateSlot
	Diagnosis  *Diagnosis
	Rejections []Rejection
}

// Query finds every group slot on date. An empty Slots list always comes
// with a Diagnosis. Errors are reserved for invalid input, services the
// provider refuses to book and cancellation.
func (e *Engine) Query(ctx context.Context, date time.Time, guests []Guest, roster Roster) (*Result, error) {
	if date.IsZero() {
		return nil, &InputError{Field: "date", GuestIndex: -1, Message: "date is required"}
	}
	if err := ValidateGuests(guests); err != nil {
		return nil, err
	}
	if err := ValidatePreferences(guests, roster); err != nil {
		return nil, err
	}
	day := e.DayStart(date)

	ctx, span := tracer.Start(ctx, "availability.query")
	defer span.End()
	span.SetAttributes(
		attribute.String("salon.date", day.Format("2006-01-02")),
		attribute.Int("salon.guests", len(guests)),
	)

	pass, err := e.resolveDay(ctx, day, guests, roster)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate failed")
		e.metrics.ObserveQuery("error", 0)
		return nil, err
	}
	if !pass.open {
		diag := closedDiagnosis()
		e.metrics.ObserveQuery("closed", 0)
		e.metrics.ObserveDiagnosis(string(diag.Reason))
		return &Result{Date: day, Diagnosis: &diag}, nil
	}
	span.SetAttributes(attribute.Int("salon.slots", len(pass.resolution.Slots)))

	result := &Result{Date: day, Slots: pass.resolution.Slots, Rejections: pass.resolution.Rejections}
	if len(pass.resolution.Slots) > 0 {
		e.metrics.ObserveQuery("slots", len(pass.resolution.Slots))
		return result, nil
	}

	inHours := make(map[int]bool, len(guests))
	for _, g := range guests {
		inHours[g.Index] = hasAnyAt(pass.availability[g.Index], pass.candidates)
	}
	diag, err := e.explain(ctx, day, guests, pass.availability, inHours, roster)
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveQuery("no_slots", 0)
	e.metrics.ObserveDiagnosis(string(diag.Reason))
	e.logger.Debug("no group slot",
		"date", day.Format("2006-01-02"),
		"reason", diag.Reason,
		"rejections", len(pass.resolution.Rejections),
	)
	result.Diagnosis = &diag
	return result, nil
}

// dayPass is the fetch, hours and resolve outcome for one date.
type dayPass struct {
	open         bool
	availability map[int]GuestAvailability
	candidates   []time.Time
	resolution   Resolution
}

// resolveDay aggregates, filters and resolves one local day without
// diagnosing an empty result. Closed days make no provider calls.
func (e *Engine) resolveDay(ctx context.Context, day time.Time, guests []Guest, roster Roster) (dayPass, error) {
	hours, open := e.settings.Hours.For(day)
	if !open {
		return dayPass{}, nil
	}
	availability, err := e.Aggregate(ctx, day, guests, roster)
	if err != nil {
		return dayPass{}, err
	}
	candidates := e.candidates(day, hours, longestDuration(guests), availability)
	return dayPass{
		open:         true,
		availability: availability,
		candidates:   candidates,
		resolution:   Resolve(guests, availability, roster, candidates),
	}, nil
}

func (e *Engine) candidates(day time.Time, hours DayHours, longest int, availability map[int]GuestAvailability) []time.Time {
	if e.settings.CandidateMode == CandidateObserved {
		return ObservedCandidates(day, hours, longest, availability)
	}
	return GridCandidates(day, hours, longest)
}

func hasAnyAt(ga GuestAvailability, candidates []time.Time) bool {
	for _, t := range candidates {
		for staffID := range ga {
			if ga.Has(staffID, t) {
				return true
			}
		}
	}
	return false
}

// IsFatal reports errors that must not be degraded into "no availability".
func IsFatal(err error) bool {
	return errors.Is(err, booking.ErrServiceNotBookable) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, context.Canceled)
}

func (e *Engine) requireProvider() error {
	if e.provider == nil {
		return fmt.Errorf("availability: no scheduling provider configured")
	}
	return nil
}
