package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/klokku/workout-planner/internal/rest"
	"github.com/klokku/workout-planner/pkg/backend"
	"github.com/klokku/workout-planner/pkg/calendar_date"
	"github.com/klokku/workout-planner/pkg/calendar_grid"
	"github.com/klokku/workout-planner/pkg/drag_drop"
	"github.com/klokku/workout-planner/pkg/plan_export"
	"github.com/klokku/workout-planner/pkg/weather"
	"github.com/klokku/workout-planner/pkg/workout"
	log "github.com/sirupsen/logrus"
)

// maxImportSize bounds the multipart form kept in memory during an import.
const maxImportSize = 10 << 20

// CalendarExporter pushes day events to an external calendar.
type CalendarExporter interface {
	Export(ctx context.Context, items []workout.PlannableItem, from, to calendar_date.CalendarDate) (int, error)
}

type SelectionRequest struct {
	IsSelected *bool   `json:"isSelected,omitempty"`
	Location   *string `json:"workoutLocation,omitempty"`
	Notes      *string `json:"userNotes,omitempty"`
}

type CustomWorkoutRequest struct {
	Title           string                     `json:"title"`
	WorkoutType     string                     `json:"workoutType"`
	Description     string                     `json:"description"`
	PlannedDate     calendar_date.CalendarDate `json:"plannedDate"`
	PlannedDuration *float64                   `json:"plannedDuration,omitempty"`
	TimeOfDay       string                     `json:"timeOfDay,omitempty"`
	Recurrence      string                     `json:"recurrence,omitempty"`
	Until           calendar_date.CalendarDate `json:"until"`
}

type ExportResponse struct {
	Exported int `json:"exported"`
}

type Handler struct {
	session  *Session
	exporter CalendarExporter
}

func NewHandler(session *Session, exporter CalendarExporter) *Handler {
	return &Handler{session: session, exporter: exporter}
}

// Register mounts the planner routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/planner/grid", h.GetGrid).Methods("GET")
	r.HandleFunc("/api/planner/navigate/{action}", h.Navigate).Methods("POST")
	r.HandleFunc("/api/planner/view/{mode}", h.SetViewMode).Methods("PUT")
	r.HandleFunc("/api/planner/day/{date}", h.GetDay).Methods("GET")
	r.HandleFunc("/api/planner/drag/{id}", h.StartDrag).Methods("POST")
	r.HandleFunc("/api/planner/drag", h.CancelDrag).Methods("DELETE")
	r.HandleFunc("/api/planner/hover", h.Hover).Methods("POST")
	r.HandleFunc("/api/planner/drop", h.Drop).Methods("POST")
	r.HandleFunc("/api/planner/items/{id}", h.GetItem).Methods("GET")
	r.HandleFunc("/api/planner/items/{id}/move", h.Move).Methods("PUT")
	r.HandleFunc("/api/planner/items/{id}/selection", h.UpdateSelection).Methods("PUT")
	r.HandleFunc("/api/planner/items/{id}/selection", h.ResetSelection).Methods("DELETE")
	r.HandleFunc("/api/planner/custom", h.CreateCustomWorkout).Methods("POST")
	r.HandleFunc("/api/planner/custom/{id}", h.DeleteCustomWorkout).Methods("DELETE")
	r.HandleFunc("/api/planner/import", h.Import).Methods("POST")
	r.HandleFunc("/api/planner/refresh", h.Refresh).Methods("POST")
	r.HandleFunc("/api/planner/export.ics", h.ExportICS).Methods("GET")
	r.HandleFunc("/api/planner/export.csv", h.ExportCSV).Methods("GET")
	r.HandleFunc("/api/planner/export/google", h.ExportGoogle).Methods("POST")
	r.HandleFunc("/api/planner/weather/{date}", h.GetWeather).Methods("GET")
}

func (h *Handler) GetGrid(w http.ResponseWriter, r *http.Request) {
	if value := r.URL.Query().Get("date"); value != "" {
		date, err := calendar_date.Parse(value)
		if err != nil {
			writeError(w, err)
			return
		}
		rest.WriteJSON(w, http.StatusOK, h.session.GoTo(date))
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.session.Grid())
}

func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	action, err := calendar_grid.ParseAction(mux.Vars(r)["action"])
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.session.Navigate(action))
}

func (h *Handler) SetViewMode(w http.ResponseWriter, r *http.Request) {
	mode, err := calendar_grid.ParseViewMode(mux.Vars(r)["mode"])
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.session.SetViewMode(mode))
}

func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, err := calendar_date.Parse(mux.Vars(r)["date"])
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.session.Day(date))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	item, err := h.session.Item(key)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) StartDrag(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	if err := h.session.StartDrag(key); err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.session.Grid().Drag)
}

func (h *Handler) CancelDrag(w http.ResponseWriter, r *http.Request) {
	h.session.CancelDrag()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Hover(w http.ResponseWriter, r *http.Request) {
	target, ok := dropTarget(w, r)
	if !ok {
		return
	}
	if err := h.session.Hover(target); err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.session.Grid().Drag)
}

func (h *Handler) Drop(w http.ResponseWriter, r *http.Request) {
	target, ok := dropTarget(w, r)
	if !ok {
		return
	}
	intent, err := h.session.Drop(r.Context(), target)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, intent)
}

func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	target, ok := dropTarget(w, r)
	if !ok {
		return
	}
	intent, err := h.session.Move(r.Context(), key, target)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, intent)
}

// UpdateSelection validates every field of the body, then sends them to the
// backend as one update.
func (h *Handler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	change := SelectionChange{IsSelected: req.IsSelected, Notes: req.Notes}
	if req.Location != nil {
		location, known := workout.ParseLocation(*req.Location)
		if !known && *req.Location != "" {
			rest.WriteError(w, http.StatusBadRequest, "Unknown workout location", "Location must be indoor or outdoor")
			return
		}
		change.Location = &location
	}
	if change.IsSelected == nil && change.Location == nil && change.Notes == nil {
		rest.WriteError(w, http.StatusBadRequest, "Nothing to update", "Set isSelected, workoutLocation or userNotes")
		return
	}
	item, err := h.session.UpdateSelection(r.Context(), key, change)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) ResetSelection(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	item, err := h.session.ResetSelection(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) CreateCustomWorkout(w http.ResponseWriter, r *http.Request) {
	var req CustomWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	timeOfDay, _ := workout.ParseTimeOfDay(req.TimeOfDay)
	draft := workout.PlannableItem{
		Title:         req.Title,
		Type:          req.WorkoutType,
		Description:   req.Description,
		Date:          req.PlannedDate,
		DurationHours: req.PlannedDuration,
		TimeOfDay:     timeOfDay,
	}
	if req.Recurrence == "" {
		item, err := h.session.CreateCustomWorkout(r.Context(), draft)
		if err != nil {
			writeError(w, err)
			return
		}
		rest.WriteJSON(w, http.StatusCreated, item)
		return
	}
	items, err := h.session.CreateRecurringCustomWorkout(r.Context(), draft, req.Recurrence, req.Until)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, items)
}

func (h *Handler) DeleteCustomWorkout(w http.ResponseWriter, r *http.Request) {
	key, ok := itemKey(w, r)
	if !ok {
		return
	}
	key.IsCustom = true
	if err := h.session.DeleteCustomWorkout(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid multipart form", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "No file provided", err.Error())
		return
	}
	defer file.Close()

	result, err := h.session.Import(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.session.Grid())
}

func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.exportRange(w, r)
	if !ok {
		return
	}
	body, err := plan_export.ICS(h.session.Items(), from, to, h.session.clock.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=workouts-%s.ics", from))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.exportRange(w, r)
	if !ok {
		return
	}
	body, err := plan_export.CSV(workout.InPeriod(h.session.Items(), from, to))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=workouts-%s.csv", from))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) ExportGoogle(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		rest.WriteError(w, http.StatusNotImplemented, "Google Calendar export is not configured", "")
		return
	}
	from, to, ok := h.exportRange(w, r)
	if !ok {
		return
	}
	exported, err := h.exporter.Export(r.Context(), h.session.Items(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ExportResponse{Exported: exported})
}

func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	date, err := calendar_date.Parse(mux.Vars(r)["date"])
	if err != nil {
		writeError(w, err)
		return
	}
	bucket, _ := workout.ParseTimeOfDay(r.URL.Query().Get("timeOfDay"))
	forecast, err := h.session.Weather(r.Context(), date, bucket)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, forecast)
}

// exportRange reads from/to query dates, defaulting to the displayed period.
func (h *Handler) exportRange(w http.ResponseWriter, r *http.Request) (calendar_date.CalendarDate, calendar_date.CalendarDate, bool) {
	from, to := h.session.Period()
	for name, target := range map[string]*calendar_date.CalendarDate{"from": &from, "to": &to} {
		value := r.URL.Query().Get(name)
		if value == "" {
			continue
		}
		date, err := calendar_date.Parse(value)
		if err != nil {
			writeError(w, err)
			return from, to, false
		}
		*target = date
	}
	return from, to, true
}

func itemKey(w http.ResponseWriter, r *http.Request) (workout.Key, bool) {
	key, err := workout.ParseKey(mux.Vars(r)["id"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid item id", err.Error())
		return workout.Key{}, false
	}
	return key, true
}

func dropTarget(w http.ResponseWriter, r *http.Request) (drag_drop.DropTarget, bool) {
	var target drag_drop.DropTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return target, false
	}
	if target.Day.IsZero() {
		rest.WriteError(w, http.StatusBadRequest, "Drop target requires a day", "")
		return target, false
	}
	return target, true
}

func writeError(w http.ResponseWriter, err error) {
	var upstream *backend.UpstreamError
	switch {
	case errors.Is(err, workout.ErrNotFound), errors.Is(err, backend.ErrNotFound):
		rest.WriteError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, backend.ErrUnauthenticated), errors.Is(err, plan_export.ErrUnauthenticated):
		rest.WriteError(w, http.StatusUnauthorized, "Authentication required", err.Error())
	case errors.Is(err, drag_drop.ErrNotDragging), errors.Is(err, ErrCustomItem):
		rest.WriteError(w, http.StatusConflict, "Operation not allowed", err.Error())
	case errors.Is(err, workout.ErrInvalidItem),
		errors.Is(err, calendar_date.ErrFormat),
		errors.Is(err, calendar_date.ErrInvalidInput),
		errors.Is(err, calendar_grid.ErrUnknownAction),
		errors.Is(err, calendar_grid.ErrUnknownViewMode),
		errors.Is(err, weather.ErrOutOfRange):
		rest.WriteError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, backend.ErrUnavailable):
		rest.WriteError(w, http.StatusServiceUnavailable, "Workout backend unavailable", err.Error())
	case errors.As(err, &upstream):
		rest.WriteError(w, http.StatusBadGateway, "Workout backend error", upstream.Message)
	default:
		log.Errorf("Unhandled planner error: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal error", err.Error())
	}
}
