package receipt

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/receipt-processor/internal/common"
	"github.com/noah-isme/receipt-processor/internal/obs"
)

const (
	msgProcessFailed    = "An error occurred during receipt processing"
	msgUnexpectedLookup = "An unexpected error occurred."
)

// Repository is the store surface the HTTP handlers depend on.
type Repository interface {
	Process(in Input) (*Record, error)
	Points(id string) (int, error)
	Formatted(id string) (View, error)
	Count() int
}

// Handler exposes the receipt endpoints.
type Handler struct {
	repo      Repository
	validator *RequestValidator
	logger    zerolog.Logger
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Repository Repository
	Validator  *RequestValidator
	Logger     *zerolog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = NewRequestValidator()
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Handler{repo: cfg.Repository, validator: v, logger: logger}
}

// Routes mounts the receipt endpoints. process wraps the submission route
// with extra middleware such as idempotency.
func (h *Handler) Routes(r chi.Router, process ...func(http.Handler) http.Handler) {
	r.With(process...).Post("/process", h.Process)
	r.Get("/{id}/points", h.Points)
	r.Get("/{id}", h.Get)
}

// Process handles POST /receipts/process.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		common.JSONMessage(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}
	log := h.loggerFor(r.Context())

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Warn().Err(err).Msg("decode receipt")
		common.JSONMessage(w, http.StatusBadRequest, "Input Error "+err.Error())
		return
	}
	if err := h.validator.Validate(in); err != nil {
		log.Warn().Err(err).Msg("receipt schema")
		common.JSONMessage(w, http.StatusBadRequest, "Input Error "+err.Error())
		return
	}

	rec, err := h.repo.Process(in)
	if err != nil {
		appErr := classify(err, msgProcessFailed)
		obs.ObserveReceipt(resultLabel(err), 0, h.repo.Count())
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("process receipt")
		} else {
			log.Warn().Err(err).Msg("reject receipt")
		}
		common.WriteError(w, appErr)
		return
	}
	obs.ObserveReceipt("stored", rec.Points(), h.repo.Count())
	log.Info().Str("receipt_id", rec.ID()).Int("points", rec.Points()).Msg("processed receipt")
	common.JSON(w, http.StatusOK, map[string]string{"id": rec.ID()})
}

// Points handles GET /receipts/{id}/points.
func (h *Handler) Points(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		common.JSONMessage(w, http.StatusInternalServerError, msgUnexpectedLookup)
		return
	}
	id := chi.URLParam(r, "id")
	pts, err := h.repo.Points(id)
	if err != nil {
		h.lookupFailed(w, r, id, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]int{"points": pts})
}

// Get handles GET /receipts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		common.JSONMessage(w, http.StatusInternalServerError, msgUnexpectedLookup)
		return
	}
	id := chi.URLParam(r, "id")
	view, err := h.repo.Formatted(id)
	if err != nil {
		h.lookupFailed(w, r, id, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]View{"receipt": view})
}

func (h *Handler) lookupFailed(w http.ResponseWriter, r *http.Request, id string, err error) {
	log := h.loggerFor(r.Context())
	appErr := classify(err, msgUnexpectedLookup)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error().Err(err).Str("receipt_id", id).Msg("lookup receipt")
	} else {
		log.Info().Str("receipt_id", id).Msg(appErr.Message)
	}
	common.WriteError(w, appErr)
}

// classify maps domain errors to their HTTP form. Anything unrecognised
// becomes an internal error carrying only the generic message.
func classify(err error, generic string) *common.AppError {
	classified, ok := KindOf(err)
	if !ok {
		return common.Internal(generic, err)
	}
	switch classified.Kind() {
	case KindValidation:
		return common.InputError("Input Error "+classified.Error(), err)
	case KindDuplicate:
		return common.InputError(classified.Error(), err)
	case KindNotFound:
		return common.NotFound(classified.Error(), err)
	default:
		return common.Internal(generic, err)
	}
}

func resultLabel(err error) string {
	if classified, ok := KindOf(err); ok {
		return string(classified.Kind())
	}
	return "error"
}

func (h *Handler) loggerFor(ctx context.Context) *zerolog.Logger {
	if ctxLogger := zerolog.Ctx(ctx); ctxLogger != nil && ctxLogger.GetLevel() != zerolog.Disabled {
		return ctxLogger
	}
	return &h.logger
}
