// Package handlers provides HTTP handlers for the composer API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ConnorBritain/pidgeon/internal/api/middleware"
	"github.com/ConnorBritain/pidgeon/internal/compose"
	"github.com/ConnorBritain/pidgeon/internal/domain"
	"github.com/ConnorBritain/pidgeon/internal/hl7"
	"github.com/ConnorBritain/pidgeon/internal/schema"
)

// MessageHandler serves message composition endpoints.
type MessageHandler struct {
	composer *compose.Composer
	logger   *zap.Logger
}

// NewMessageHandler creates a message handler.
func NewMessageHandler(composer *compose.Composer, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{composer: composer, logger: logger}
}

// Routes returns the handler routes.
func (h *MessageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/compose", h.Compose)
	return r
}

// PatientPayload is the request shape for a caller-supplied patient.
type PatientPayload struct {
	MRN        string `json:"mrn,omitempty"`
	FamilyName string `json:"familyName"`
	GivenName  string `json:"givenName"`
	Sex        string `json:"sex,omitempty"`
	BirthDate  string `json:"birthDate,omitempty"` // YYYY-MM-DD
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// ComposeRequest is the request body for composing a message.
type ComposeRequest struct {
	TriggerEvent         string             `json:"triggerEvent"`
	Seed                 *int64             `json:"seed,omitempty"`
	Version              string             `json:"version,omitempty"`
	Profile              string             `json:"profile,omitempty"`
	FieldFillRate        *float64           `json:"fieldFillRate,omitempty"`
	SegmentProbabilities map[string]float64 `json:"segmentProbabilities,omitempty"`
	SegmentRepeatCounts  map[string]int     `json:"segmentRepeatCounts,omitempty"`
	Patient              *PatientPayload    `json:"patient,omitempty"`
}

// ComposeResponse is the response for a composed message.
type ComposeResponse struct {
	Message      string `json:"message"`
	TriggerEvent string `json:"triggerEvent"`
	Seed         int64  `json:"seed"`
	ControlID    string `json:"controlId"`
}

// Compose handles POST /messages/compose.
func (h *MessageHandler) Compose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("message-handler")
	ctx, span := tracer.Start(ctx, "compose_message")
	defer span.End()

	var req ComposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TriggerEvent == "" {
		jsonError(w, "triggerEvent is required", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("trigger_event", req.TriggerEvent))

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	opts, err := composeOptions(&req, seed)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	input, err := composeInput(&req)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	text, err := h.composer.Compose(ctx, req.TriggerEvent, input, opts...)
	if err != nil {
		switch {
		case errors.Is(err, compose.ErrSchemaNotFound):
			jsonError(w, "unknown trigger event "+req.TriggerEvent, http.StatusNotFound)
		case errors.Is(err, compose.ErrRequiredInputMissing):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("compose failed",
				zap.String("trigger_event", req.TriggerEvent),
				zap.String("request_id", middleware.GetRequestID(ctx)),
				zap.Error(err))
			jsonError(w, "composition failed", http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("message composed",
		zap.String("trigger_event", req.TriggerEvent),
		zap.Int64("seed", seed),
		zap.String("request_id", middleware.GetRequestID(ctx)))

	writeJSON(w, http.StatusOK, ComposeResponse{
		Message:      text,
		TriggerEvent: req.TriggerEvent,
		Seed:         seed,
		ControlID:    hl7.ControlID(text),
	})
}

func composeOptions(req *ComposeRequest, seed int64) ([]compose.Option, error) {
	opts := []compose.Option{compose.WithSeed(seed)}
	switch req.Profile {
	case "":
	case "dense":
		opts = append(opts, compose.WithProfile(compose.ProfileDense))
	case "sparse":
		opts = append(opts, compose.WithProfile(compose.ProfileSparse))
	default:
		return nil, errors.New("unknown profile " + req.Profile)
	}
	if req.Version != "" {
		opts = append(opts, compose.WithVersion(req.Version))
	}
	if req.FieldFillRate != nil {
		if *req.FieldFillRate < 0 || *req.FieldFillRate > 1 {
			return nil, errors.New("fieldFillRate must be within [0,1]")
		}
		opts = append(opts, compose.WithFieldFillRate(*req.FieldFillRate))
	}
	for code, p := range req.SegmentProbabilities {
		opts = append(opts, compose.WithSegmentProbability(code, p))
	}
	for code, n := range req.SegmentRepeatCounts {
		opts = append(opts, compose.WithSegmentRepeatCount(code, n))
	}
	return opts, nil
}

func composeInput(req *ComposeRequest) (*compose.Input, error) {
	if req.Patient == nil {
		return nil, nil
	}
	p := req.Patient
	patient := &domain.Patient{
		MRN:        p.MRN,
		FamilyName: p.FamilyName,
		GivenName:  p.GivenName,
		Sex:        p.Sex,
		Street:     p.Street,
		City:       p.City,
		State:      p.State,
		PostalCode: p.PostalCode,
		Phone:      p.Phone,
	}
	if p.BirthDate != "" {
		birth, err := time.Parse("2006-01-02", p.BirthDate)
		if err != nil {
			return nil, errors.New("birthDate must be YYYY-MM-DD")
		}
		patient.BirthDate = birth
	}
	return &compose.Input{Patient: patient}, nil
}

// SchemaHandler serves read-only schema browsing endpoints.
type SchemaHandler struct {
	store  schema.Store
	logger *zap.Logger
}

// NewSchemaHandler creates a schema handler.
func NewSchemaHandler(store schema.Store, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{store: store, logger: logger}
}

// Routes returns the handler routes.
func (h *SchemaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/trigger-events/{code}", h.TriggerEvent)
	r.Get("/segments/{code}", h.Segment)
	r.Get("/tables/{id}", h.Table)
	return r
}

// TriggerEvent handles GET /schema/trigger-events/{code}.
func (h *SchemaHandler) TriggerEvent(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	def, err := h.store.TriggerEvent(r.Context(), code)
	if err != nil {
		h.notFoundOrError(w, err, "trigger event "+code)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// Segment handles GET /schema/segments/{code}.
func (h *SchemaHandler) Segment(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	def, err := h.store.Segment(r.Context(), code)
	if err != nil {
		h.notFoundOrError(w, err, "segment "+code)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// Table handles GET /schema/tables/{id}.
func (h *SchemaHandler) Table(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	def, err := h.store.Table(r.Context(), id)
	if err != nil {
		h.notFoundOrError(w, err, "table "+id)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *SchemaHandler) notFoundOrError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, schema.ErrNotFound) {
		jsonError(w, what+" not found", http.StatusNotFound)
		return
	}
	h.logger.Error("schema lookup failed", zap.Error(err))
	jsonError(w, "schema lookup failed", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}
