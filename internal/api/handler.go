package api

import (
	"agenda/internal/metrics"
	"agenda/internal/models"
	"agenda/internal/reservation"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

const maxBodyBytes = 1 << 20

const (
	msgUnrecognized  = "Não é possível reconhecer os dados para realizar uma reserva."
	msgInvalidSpace  = "Espaço inválido."
	msgInvalidWindow = "O horário de término deve ser posterior ao horário de início."
	msgReserved      = "Este espaço já se encontra reservado para a data e horário."
	msgCreated       = "Programação criada com sucesso."
)

// Booker books a reservation.
type Booker interface {
	Book(ctx context.Context, req models.ReservationRequest) (*models.Event, error)
}

// ReservationHandler serves POST /agendar.
type ReservationHandler struct {
	booker  Booker
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewReservationHandler(booker Booker, logger *slog.Logger, m *metrics.Metrics) *ReservationHandler {
	return &ReservationHandler{booker: booker, logger: logger, metrics: m}
}

// Handle decodes the reservation request and books it. Every outcome is a JSON message;
// failures of any kind use status 400.
func (h *ReservationHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req models.ReservationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("POST /agendar - Invalid request body", "error", err)
		h.metrics.Reservation(metrics.OutcomeInvalidRequest)
		RespondBadRequest(w, msgUnrecognized)
		return
	}

	_, err := h.booker.Book(r.Context(), req)
	msg, outcome := Outcome(err)
	h.metrics.Reservation(outcome)
	if outcome == metrics.OutcomeError {
		h.logger.Error("POST /agendar - Failed to book reservation", "space", req.Space, "error", err)
	}
	if outcome != metrics.OutcomeCreated {
		RespondBadRequest(w, msg)
		return
	}
	RespondMessage(w, http.StatusOK, msg)
}

// Outcome maps the result of a booking to the caller-facing message and its metrics outcome.
func Outcome(err error) (string, string) {
	switch {
	case err == nil:
		return msgCreated, metrics.OutcomeCreated
	case errors.Is(err, reservation.ErrInvalidRequest):
		return msgUnrecognized, metrics.OutcomeInvalidRequest
	case errors.Is(err, reservation.ErrInvalidSpace):
		return msgInvalidSpace, metrics.OutcomeInvalidSpace
	case errors.Is(err, reservation.ErrInvalidWindow):
		return msgInvalidWindow, metrics.OutcomeInvalidWindow
	case errors.Is(err, reservation.ErrSpaceReserved):
		return msgReserved, metrics.OutcomeConflict
	default:
		return err.Error(), metrics.OutcomeError
	}
}
