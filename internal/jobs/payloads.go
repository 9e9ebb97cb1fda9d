package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// EmailPayload is the payload for TypeSendEmail jobs.
type EmailPayload struct {
	// Template names the email template to render (e.g. "welcome").
	Template string `json:"template"`

	// To is the recipient address.
	To string `json:"to"`

	// Data holds template variables.
	Data map[string]any `json:"data,omitempty"`
}

func (EmailPayload) JobType() JobType { return TypeSendEmail }

func (p EmailPayload) Validate() error {
	if p.Template == "" {
		return validationErr("template", "required")
	}
	if p.To == "" {
		return validationErr("to", "required")
	}
	if _, err := mail.ParseAddress(p.To); err != nil {
		return validationErr("to", "not a valid email address")
	}
	return nil
}

// WebhookPayload is the payload for TypeProcessWebhook jobs. It carries an
// event received from an external provider; the raw event body is passed
// through untouched for the domain processor to interpret.
type WebhookPayload struct {
	// Source identifies the sending provider (e.g. "stripe").
	Source string `json:"source"`

	// EventID is the provider's identifier for the event. It is the stable
	// domain identifier idempotency keys are derived from.
	EventID string `json:"event_id"`

	// EventType is the provider's event type (e.g. "invoice.paid").
	EventType string `json:"event_type"`

	// Data is the raw event body.
	Data json.RawMessage `json:"data,omitempty"`
}

func (WebhookPayload) JobType() JobType { return TypeProcessWebhook }

func (p WebhookPayload) Validate() error {
	if p.Source == "" {
		return validationErr("source", "required")
	}
	if p.EventID == "" {
		return validationErr("event_id", "required")
	}
	if p.EventType == "" {
		return validationErr("event_type", "required")
	}
	return nil
}

// Report formats accepted by ReportPayload.
const (
	ReportFormatCSV  = "csv"
	ReportFormatJSON = "json"
	ReportFormatPDF  = "pdf"
)

// ReportPayload is the payload for TypeGenerateReport jobs.
type ReportPayload struct {
	// ReportType names the report to build (e.g. "usage").
	ReportType string `json:"report_type"`

	// PeriodStart and PeriodEnd bound the reporting window.
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	// Format is one of the ReportFormat constants.
	Format string `json:"format"`
}

func (ReportPayload) JobType() JobType { return TypeGenerateReport }

func (p ReportPayload) Validate() error {
	if p.ReportType == "" {
		return validationErr("report_type", "required")
	}
	switch p.Format {
	case ReportFormatCSV, ReportFormatJSON, ReportFormatPDF:
	case "":
		return validationErr("format", "required")
	default:
		return validationErr("format", fmt.Sprintf("unknown format %q", p.Format))
	}
	if p.PeriodStart.IsZero() {
		return validationErr("period_start", "required")
	}
	if p.PeriodEnd.IsZero() {
		return validationErr("period_end", "required")
	}
	if p.PeriodEnd.Before(p.PeriodStart) {
		return validationErr("period_end", "before period_start")
	}
	return nil
}

// strictUnmarshal decodes JSON rejecting unknown fields, so a payload whose
// shape belongs to a different job type fails instead of half-decoding.
func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// DecodeEnvelope parses and validates the outer envelope. The payload is
// left raw; DecodePayload (or the worker wrapper's typed decode) narrows it.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := strictUnmarshal(data, &env); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed envelope: %v", err)}
	}
	if env.Type == "" {
		return nil, validationErr("type", "required")
	}
	if len(env.Payload) == 0 {
		return nil, validationErr("payload", "required")
	}
	if env.Metadata.CreatedAt.IsZero() {
		return nil, validationErr("metadata.created_at", "required")
	}
	// An empty job ID is legal: schedule registrations carry none and the
	// worker mints one per firing.
	if env.JobID != "" {
		if _, err := uuid.Parse(env.JobID); err != nil {
			return nil, validationErr("job_id", "not a valid UUID")
		}
	}
	return &env, nil
}

// DecodePayload decodes and validates raw payload bytes as the schema for
// the given job type. An unregistered type wraps ErrUnregisteredType; a
// shape or field violation is a ValidationError.
func DecodePayload(t JobType, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch t {
	case TypeSendEmail:
		var v EmailPayload
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("payload does not match %q schema: %v", t, err)}
		}
		p = v
	case TypeProcessWebhook:
		var v WebhookPayload
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("payload does not match %q schema: %v", t, err)}
		}
		p = v
	case TypeGenerateReport:
		var v ReportPayload
		if err := strictUnmarshal(raw, &v); err != nil {
			return nil, &ValidationError{Reason: fmt.Sprintf("payload does not match %q schema: %v", t, err)}
		}
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnregisteredType, t)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
