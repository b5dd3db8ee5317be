package advisor

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"fieldops-dispatch/internal/geo"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidPayload marks a request the caller must fix. No external call
// is made for such a request.
var ErrInvalidPayload = errors.New("invalid payload")

// Request asks for a suggestion for one job.
type Request struct {
	Job                  *JobInput             `json:"job" validate:"required"`
	BusinessHours        *BusinessHours        `json:"businessHours,omitempty"`
	TechniciansAvailable []CandidateTechnician `json:"techniciansAvailable,omitempty" validate:"dive"`
}

type JobInput struct {
	ID                 string           `json:"id" validate:"required"`
	Title              string           `json:"title,omitempty"`
	CustomerName       string           `json:"customerName,omitempty"`
	TechnicianID       string           `json:"technicianId,omitempty"`
	StartTime          time.Time        `json:"startTime" validate:"required"`
	EndTime            time.Time        `json:"endTime" validate:"required,gtefield=StartTime"`
	Revenue            *float64         `json:"revenue,omitempty"`
	IsExistingCustomer *bool            `json:"isExistingCustomer,omitempty"`
	Location           *geo.Coordinates `json:"location,omitempty"`
	TechnicianLocation *geo.Coordinates `json:"technicianLocation,omitempty"`
}

// BusinessHours are free-form display strings such as "8:00 AM".
type BusinessHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type CandidateTechnician struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name,omitempty"`
	Utilization *float64 `json:"utilization,omitempty" validate:"omitempty,gte=0,lte=1"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports every problem in one ErrInvalidPayload.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: job is required", ErrInvalidPayload)
	}
	if err := validate.Struct(r); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// fieldError converts a single FieldError into a readable message using
// the JSON path, e.g. "job.startTime is required".
func fieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, lowerFirst(fe.Param()))
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func (h *BusinessHours) window() (string, string) {
	start, end := DefaultOpeningTime, DefaultClosingTime
	if h != nil {
		if s := strings.TrimSpace(h.Start); s != "" {
			start = s
		}
		if e := strings.TrimSpace(h.End); e != "" {
			end = e
		}
	}
	return start, end
}
