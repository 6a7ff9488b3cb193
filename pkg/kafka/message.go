package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// SuggestionMessage is an incoming batch from the AI assistant on the
// suggestion topic. The assistant addresses a specific mapping surface; the
// entity path tells which node the row suggestions land on.
type SuggestionMessage struct {
	TenantID      string               `json:"tenant_id"`
	CompanyID     string               `json:"company_id"`
	StatementType models.StatementType `json:"statement_type"`
	EntityPath    []string             `json:"entity_path"`
	Suggestion    models.Suggestion    `json:"suggestion"`
	Timestamp     time.Time            `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// ParseSuggestionMessage parses a raw Kafka payload into a SuggestionMessage
func ParseSuggestionMessage(data []byte) (*SuggestionMessage, error) {
	var msg SuggestionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate checks the addressing fields without touching the suggestion
// payload; payload records are validated individually at apply time.
func (m *SuggestionMessage) Validate() error {
	if m.TenantID == "" {
		return errMissingField("tenant_id")
	}
	if m.CompanyID == "" {
		return errMissingField("company_id")
	}
	if !m.StatementType.IsValid() {
		return errMissingField("statement_type")
	}
	return nil
}

type errMissingField string

func (e errMissingField) Error() string {
	return "suggestion message missing or invalid field: " + string(e)
}

// Mapping event types published to the event topic.
const (
	EventMappingSaved      = "mapping.saved"
	EventMappingRestored   = "mapping.restored"
	EventSuggestionApplied = "mapping.suggestion_applied"
)

// MappingEventMessage is what fern produces on the event topic whenever a
// mapping surface is saved, restored, or mutated by a suggestion batch.
// Downstream consumers (audit, the dashboard's activity feed) key on
// tenant:company.
type MappingEventMessage struct {
	Event         string               `json:"event"`
	TenantID      string               `json:"tenant_id"`
	CompanyID     string               `json:"company_id"`
	StatementType models.StatementType `json:"statement_type"`
	TemplateCode  string               `json:"template_code,omitempty"`

	// Counts for the activity feed
	MappingCount int `json:"mapping_count"`
	EvictedCount int `json:"evicted_count,omitempty"`
	SkippedCount int `json:"skipped_count,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// ToJSON serializes the MappingEventMessage to JSON bytes
func (m *MappingEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageHeaders contains Kafka message headers for efficient filtering
type MessageHeaders struct {
	TenantID      string
	CompanyID     string
	StatementType string
	Event         string
	TraceParent   string
	TraceState    string
}

// ToKafkaHeaders converts MessageHeaders to a slice of header key-value pairs
func (h *MessageHeaders) ToKafkaHeaders() []Header {
	headers := make([]Header, 0, 6)

	if h.TenantID != "" {
		headers = append(headers, Header{Key: "tenant_id", Value: []byte(h.TenantID)})
	}
	if h.CompanyID != "" {
		headers = append(headers, Header{Key: "company_id", Value: []byte(h.CompanyID)})
	}
	if h.StatementType != "" {
		headers = append(headers, Header{Key: "statement_type", Value: []byte(h.StatementType)})
	}
	if h.Event != "" {
		headers = append(headers, Header{Key: "event", Value: []byte(h.Event)})
	}
	if h.TraceParent != "" {
		headers = append(headers, Header{Key: "traceparent", Value: []byte(h.TraceParent)})
	}
	if h.TraceState != "" {
		headers = append(headers, Header{Key: "tracestate", Value: []byte(h.TraceState)})
	}

	return headers
}

// Header represents a Kafka message header
type Header struct {
	Key   string
	Value []byte
}

// ExtractHeaders extracts MessageHeaders from Kafka headers
func ExtractHeaders(headers []Header) MessageHeaders {
	var mh MessageHeaders
	for _, h := range headers {
		switch h.Key {
		case "tenant_id":
			mh.TenantID = string(h.Value)
		case "company_id":
			mh.CompanyID = string(h.Value)
		case "statement_type":
			mh.StatementType = string(h.Value)
		case "event":
			mh.Event = string(h.Value)
		case "traceparent":
			mh.TraceParent = string(h.Value)
		case "tracestate":
			mh.TraceState = string(h.Value)
		}
	}
	return mh
}
