// Package advisor produces a travel-aware rescheduling suggestion for a
// single job. A deterministic suggestion is always composed first; an
// optional reasoning service may replace it, never corrupt it.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldops-dispatch/internal/geo"
	"fieldops-dispatch/internal/metrics"
	"fieldops-dispatch/internal/services/traveltime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	FallbackTimeSavedMinutes = 15
	FallbackConfidence       = 0.35

	// MaxTimeSavedMinutes caps a reasoning estimate at one day.
	MaxTimeSavedMinutes = 24 * 60

	DefaultOpeningTime = "8:00 AM"
	DefaultClosingTime = "6:00 PM"

	defaultReasoningTimeout = 15 * time.Second
)

// Suggestion is always fully populated.
type Suggestion struct {
	Suggestion       string  `json:"suggestion"`
	TimeSavedMinutes int     `json:"timeSavedMinutes"`
	Confidence       float64 `json:"confidence"`
}

// TravelEstimator never fails; see traveltime.Estimator.
type TravelEstimator interface {
	Estimate(ctx context.Context, origin, destination geo.GeoPoint) traveltime.Estimate
}

// Reasoner completes a prompt. *reasoning.OpenAIClient implements it.
type Reasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TechnicianLocator resolves a technician's latest company-scoped position.
type TechnicianLocator interface {
	TechnicianLocation(ctx context.Context, companyID, technicianID string) (geo.GeoPoint, bool, error)
}

// Options carries the optional collaborators. A nil Reasoner disables the
// reasoning step; a nil Locator means only request coordinates are used.
type Options struct {
	Reasoner         Reasoner
	Locator          TechnicianLocator
	ReasoningTimeout time.Duration
}

type Advisor struct {
	travel     TravelEstimator
	locator    TechnicianLocator
	strategies []strategy
	log        zerolog.Logger
}

// plan is the per-request state shared by the strategies.
type plan struct {
	requestID string
	req       *Request
	travel    *travelNote
	fallback  Suggestion
}

type travelNote struct {
	estimate traveltime.Estimate
	text     string
}

// strategy produces a suggestion. label names what actually served it
// and feeds the suggestions metric.
type strategy struct {
	name string
	run  func(ctx context.Context, p *plan) (s Suggestion, label string, err error)
}

func New(travel TravelEstimator, opts Options, log zerolog.Logger) *Advisor {
	a := &Advisor{
		travel:  travel,
		locator: opts.Locator,
		log:     log.With().Str("component", "advisor").Logger(),
	}

	if opts.Reasoner != nil {
		timeout := opts.ReasoningTimeout
		if timeout <= 0 {
			timeout = defaultReasoningTimeout
		}
		a.strategies = append(a.strategies, reasoningStrategy(opts.Reasoner, timeout))
	}
	a.strategies = append(a.strategies, deterministicStrategy)

	return a
}

// Suggest validates req and returns a suggestion. The only error it
// returns wraps ErrInvalidPayload.
func (a *Advisor) Suggest(ctx context.Context, companyID string, req *Request) (Suggestion, error) {
	if err := req.Validate(); err != nil {
		return Suggestion{}, err
	}

	p := &plan{requestID: uuid.NewString(), req: req}
	log := a.log.With().Str("request_id", p.requestID).Str("job_id", req.Job.ID).Logger()

	p.travel = a.estimateTravel(ctx, companyID, req.Job, log)
	p.fallback = fallbackSuggestion(req, p.travel)

	for _, s := range a.strategies {
		out, label, err := attempt(ctx, s, p)
		if err != nil {
			log.Warn().Err(err).Str("strategy", s.name).Msg("suggestion strategy degraded")
			continue
		}
		metrics.Suggestions.WithLabelValues(label).Inc()
		log.Debug().Str("strategy", label).Msg("suggestion served")
		return out, nil
	}

	metrics.Suggestions.WithLabelValues("deterministic").Inc()
	return p.fallback, nil
}

func attempt(ctx context.Context, s strategy, p *plan) (out Suggestion, label string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", s.name, r)
		}
	}()
	return s.run(ctx, p)
}

var deterministicStrategy = strategy{
	name: "deterministic",
	run: func(_ context.Context, p *plan) (Suggestion, string, error) {
		return p.fallback, "deterministic", nil
	},
}

func reasoningStrategy(r Reasoner, timeout time.Duration) strategy {
	return strategy{
		name: "reasoning",
		run: func(ctx context.Context, p *plan) (Suggestion, string, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			reply, err := r.Complete(ctx, buildPrompt(p.req, p.travel))
			if err != nil {
				return Suggestion{}, "", fmt.Errorf("reasoning call: %w", err)
			}
			if strings.TrimSpace(reply) == "" {
				return Suggestion{}, "", errors.New("reasoning reply was empty")
			}
			out, parsed := parseReply(reply, p.fallback)
			if !parsed {
				return out, "reasoning_raw", nil
			}
			return out, "reasoning", nil
		},
	}
}

// estimateTravel returns nil when either end of the trip is unknown.
func (a *Advisor) estimateTravel(ctx context.Context, companyID string, job *JobInput, log zerolog.Logger) *travelNote {
	destination, ok := job.Location.Point()
	if !ok {
		return nil
	}

	origin, ok := job.TechnicianLocation.Point()
	if !ok && job.TechnicianID != "" && a.locator != nil {
		var err error
		origin, ok, err = a.locator.TechnicianLocation(ctx, companyID, job.TechnicianID)
		if err != nil {
			log.Warn().Err(err).Str("technician_id", job.TechnicianID).Msg("technician location lookup failed")
			return nil
		}
	}
	if !ok || a.travel == nil {
		return nil
	}

	est := a.travel.Estimate(ctx, origin, destination)
	return &travelNote{estimate: est, text: travelText(est)}
}

func travelText(est traveltime.Estimate) string {
	if est.Precise() {
		return fmt.Sprintf("Travel to job: %dm, %.1f mi", est.Minutes(), est.Miles())
	}
	return fmt.Sprintf("Est. travel to job: ~%dm", est.Minutes())
}

func fallbackSuggestion(req *Request, travel *travelNote) Suggestion {
	opening, closing := req.BusinessHours.window()

	var b strings.Builder
	b.WriteString("Keep this visit")
	if name := strings.TrimSpace(req.Job.CustomerName); name != "" {
		fmt.Fprintf(&b, " for %s", name)
	}
	fmt.Fprintf(&b, " within business hours (%s to %s) and pair it with nearby jobs on the same route to cut drive time.", opening, closing)
	if travel != nil {
		fmt.Fprintf(&b, " %s.", travel.text)
	}

	return Suggestion{
		Suggestion:       b.String(),
		TimeSavedMinutes: FallbackTimeSavedMinutes,
		Confidence:       FallbackConfidence,
	}
}
