package event_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ms-scheduling/internal/events"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/models"
	"ms-scheduling/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// EventService is the part of events.EventService served over HTTP.
type EventService interface {
	LoadByID(ctx context.Context, id int64) (*models.Event, error)
	CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error)
	UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.Event, error)
	DeleteEventByID(ctx context.Context, id int64) error
	ForceDeleteEvent(ctx context.Context, id int64) error
	UpdateEventStatus(ctx context.Context, event *models.Event, status models.EventStatusID) error
	Approve(ctx context.Context, id int64) error
	EventNameSearchSuggestion(ctx context.Context, text string) ([]string, error)
	SearchEvents(ctx context.Context, keyword string) ([]*models.Event, error)
	ScheduleEventToDateTime(ctx context.Context, id int64, from time.Time) (*models.Event, error)
	CheckAndGetDateTimeChangeURL(ctx context.Context, id int64, in models.EventInput) (string, error)
	UnassignJobEvents(ctx context.Context, jobID int64) (int64, error)
	GetEventsForCalendar(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, error)
	GetEventsNeedToBeVerified(ctx context.Context, stateID int64) ([]*models.Event, error)
	GetEventsNeedToBeApproved(ctx context.Context, stateID int64) ([]*models.Event, error)
	GetUserOverdueEvents(ctx context.Context, userID int64) ([]*models.Event, error)
	GetUserTodayEvents(ctx context.Context, userID int64) ([]*models.Event, error)
	GetUserFutureEvents(ctx context.Context, userID int64) ([]*models.Event, error)
	CalendarIndex(ctx context.Context) (*events.CalendarIndex, error)
}

type Handler struct {
	Service  EventService
	Logger   *logger.Logger
	Validate *validator.Validate
	Location *time.Location
}

func NewHandler(service EventService, log *logger.Logger, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		Service:  service,
		Logger:   log,
		Validate: utils.NewValidator(),
		Location: loc,
	}
}

// Mount registers the event routes. Calendar routes are wrapped by requireCalendar
// and hard deletes by requireAdmin.
func (h *Handler) Mount(r chi.Router, requireCalendar, requireAdmin func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireCalendar)
		r.Get("/calendar", h.CalendarIndex)
		r.Get("/calendar/events", h.CalendarEvents)
		r.Post("/calendar/events", h.CalendarEvents)
	})

	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/search", h.SearchEvents)
		r.Get("/suggest", h.SuggestEventNames)
		r.Get("/verify", h.EventsNeedToBeVerified)
		r.Get("/approve", h.EventsNeedToBeApproved)
		r.Get("/{eventId}", h.GetEvent)
		r.Put("/{eventId}", h.UpdateEvent)
		r.Delete("/{eventId}", h.DeleteEvent)
		r.With(requireAdmin).Delete("/{eventId}/force", h.ForceDeleteEvent)
		r.Patch("/{eventId}/status", h.UpdateEventStatus)
		r.Post("/{eventId}/approve", h.ApproveEvent)
		r.Post("/{eventId}/schedule", h.ScheduleEvent)
	})

	r.Post("/jobs/{jobId}/unassign", h.UnassignJobEvents)
	r.Get("/users/{userId}/events/{period}", h.UserEvents)
}

// ---------------- CALENDAR ----------------

func (h *Handler) CalendarIndex(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "CalendarIndex: received request")

	index, err := h.Service.CalendarIndex(r.Context())
	if err != nil {
		h.fail(w, "CalendarIndex", err)
		return
	}
	h.respond(w, "CalendarIndex", http.StatusOK, index)
}

// CalendarEvents answers the calendar widget feed. Absent filter lists stay empty and match nothing.
func (h *Handler) CalendarEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseCalendarFilter(r)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CalendarEvents: bad filter: %v", err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid calendar filter", err)
		return
	}
	if err := h.Validate.Struct(filter); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CalendarEvents: validation failed: %v", err))
		utils.WriteValidationError(w, err)
		return
	}
	h.Logger.Debug("API", fmt.Sprintf("CalendarEvents: %+v", filter))

	feed, err := h.Service.GetEventsForCalendar(r.Context(), filter)
	if err != nil {
		h.fail(w, "CalendarEvents", err)
		return
	}
	h.respond(w, "CalendarEvents", http.StatusOK, feed)
}

func (h *Handler) parseCalendarFilter(r *http.Request) (models.CalendarFilter, error) {
	var filter models.CalendarFilter
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			StaffIDs            []int64 `json:"staff_filters"`
			EventTypeIDs        []int64 `json:"event_type_filters"`
			NotAssignedStateIDs []int64 `json:"not_assigned_state_filters"`
			AccountManagerID    int64   `json:"account_manager_filter"`
			Start               string  `json:"start"`
			End                 string  `json:"end"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return filter, err
		}
		filter.StaffIDs = body.StaffIDs
		filter.EventTypeIDs = body.EventTypeIDs
		filter.NotAssignedStateIDs = body.NotAssignedStateIDs
		filter.AccountManagerID = body.AccountManagerID
		return filter, h.parseWindow(&filter, body.Start, body.End)
	}

	if err := r.ParseForm(); err != nil {
		return filter, err
	}
	var err error
	if filter.StaffIDs, err = formIDs(r, "staff_filters"); err != nil {
		return filter, err
	}
	if filter.EventTypeIDs, err = formIDs(r, "event_type_filters"); err != nil {
		return filter, err
	}
	if filter.NotAssignedStateIDs, err = formIDs(r, "not_assigned_state_filters"); err != nil {
		return filter, err
	}
	if am := r.Form.Get("account_manager_filter"); am != "" {
		if filter.AccountManagerID, err = strconv.ParseInt(am, 10, 64); err != nil {
			return filter, fmt.Errorf("account_manager_filter: %w", err)
		}
	}
	return filter, h.parseWindow(&filter, r.Form.Get("start"), r.Form.Get("end"))
}

func (h *Handler) parseWindow(filter *models.CalendarFilter, start, end string) error {
	var err error
	if filter.Start, err = h.parseTime(start); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if filter.End, err = h.parseTime(end); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	return nil
}

// parseTime accepts RFC 3339, a local date-time or a bare date in studio time. Blank gives the zero time.
func (h *Handler) parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", models.CalendarEventTimeLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, h.Location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", value)
}

// formIDs reads both "key[]" and "key" repeated values.
func formIDs(r *http.Request, key string) ([]int64, error) {
	ids := make([]int64, 0)
	for _, v := range append(append([]string{}, r.Form[key+"[]"]...), r.Form[key]...) {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ---------------- EVENTS ----------------

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	h.Logger.Info("API", fmt.Sprintf("GetEvent: eventId=%d", id))

	event, err := h.Service.LoadByID(r.Context(), id)
	if err != nil {
		h.fail(w, "GetEvent", err)
		return
	}
	h.respond(w, "GetEvent", http.StatusOK, event)
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "CreateEvent: received request")

	in, ok := h.decodeInput(w, r, "CreateEvent")
	if !ok {
		return
	}
	event, err := h.Service.CreateEvent(r.Context(), in)
	if err != nil {
		h.fail(w, "CreateEvent", err)
		return
	}
	h.respond(w, "CreateEvent", http.StatusCreated, event)
}

// UpdateEvent saves the event and returns the date-change email page when a shoot moved.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpdateEvent: eventId=%d", id))

	in, ok := h.decodeInput(w, r, "UpdateEvent")
	if !ok {
		return
	}
	changeURL, err := h.Service.CheckAndGetDateTimeChangeURL(r.Context(), id, in)
	if err != nil {
		h.fail(w, "UpdateEvent", err)
		return
	}
	event, err := h.Service.UpdateEvent(r.Context(), id, in)
	if err != nil {
		h.fail(w, "UpdateEvent", err)
		return
	}
	h.respond(w, "UpdateEvent", http.StatusOK, map[string]interface{}{
		"event":               event,
		"datetime_change_url": changeURL,
	})
}

// DeleteEvent soft deletes. The row stays for reporting.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	h.Logger.Info("API", fmt.Sprintf("DeleteEvent: eventId=%d", id))

	if err := h.Service.DeleteEventByID(r.Context(), id); err != nil {
		h.fail(w, "DeleteEvent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ForceDeleteEvent removes the row. Mounted behind the admin guard only.
func (h *Handler) ForceDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	h.Logger.Warn("API", fmt.Sprintf("ForceDeleteEvent: eventId=%d", id))

	if err := h.Service.ForceDeleteEvent(r.Context(), id); err != nil {
		h.fail(w, "ForceDeleteEvent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	var body struct {
		Status models.EventStatusID `json:"status" validate:"required,oneof=1 2 3"`
	}
	if !h.decode(w, r, "UpdateEventStatus", &body) {
		return
	}
	h.Logger.Info("API", fmt.Sprintf("UpdateEventStatus: eventId=%d status=%s", id, body.Status))

	event, err := h.Service.LoadByID(r.Context(), id)
	if err != nil {
		h.fail(w, "UpdateEventStatus", err)
		return
	}
	if err := h.Service.UpdateEventStatus(r.Context(), event, body.Status); err != nil {
		h.fail(w, "UpdateEventStatus", err)
		return
	}
	h.respond(w, "UpdateEventStatus", http.StatusOK, event)
}

func (h *Handler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ApproveEvent: eventId=%d", id))

	if err := h.Service.Approve(r.Context(), id); err != nil {
		h.fail(w, "ApproveEvent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ScheduleEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "eventId")
	if !ok {
		return
	}
	var body struct {
		From time.Time `json:"from" validate:"required"`
	}
	if !h.decode(w, r, "ScheduleEvent", &body) {
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ScheduleEvent: eventId=%d from=%s", id, body.From.Format(time.RFC3339)))

	event, err := h.Service.ScheduleEventToDateTime(r.Context(), id, body.From)
	if err != nil {
		h.fail(w, "ScheduleEvent", err)
		return
	}
	h.respond(w, "ScheduleEvent", http.StatusOK, event)
}

func (h *Handler) UnassignJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathID(w, r, "jobId")
	if !ok {
		return
	}
	n, err := h.Service.UnassignJobEvents(r.Context(), jobID)
	if err != nil {
		h.fail(w, "UnassignJobEvents", err)
		return
	}
	h.respond(w, "UnassignJobEvents", http.StatusOK, map[string]int64{"unassigned": n})
}

// ---------------- SEARCH & LISTS ----------------

func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	h.Logger.Info("API", fmt.Sprintf("SearchEvents: q=%q", q))

	found, err := h.Service.SearchEvents(r.Context(), q)
	if err != nil {
		h.fail(w, "SearchEvents", err)
		return
	}
	h.respond(w, "SearchEvents", http.StatusOK, found)
}

func (h *Handler) SuggestEventNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.Service.EventNameSearchSuggestion(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, "SuggestEventNames", err)
		return
	}
	h.respond(w, "SuggestEventNames", http.StatusOK, names)
}

func (h *Handler) EventsNeedToBeVerified(w http.ResponseWriter, r *http.Request) {
	stateID, ok := h.queryID(w, r, "state_id")
	if !ok {
		return
	}
	list, err := h.Service.GetEventsNeedToBeVerified(r.Context(), stateID)
	if err != nil {
		h.fail(w, "EventsNeedToBeVerified", err)
		return
	}
	h.respond(w, "EventsNeedToBeVerified", http.StatusOK, list)
}

func (h *Handler) EventsNeedToBeApproved(w http.ResponseWriter, r *http.Request) {
	stateID, ok := h.queryID(w, r, "state_id")
	if !ok {
		return
	}
	list, err := h.Service.GetEventsNeedToBeApproved(r.Context(), stateID)
	if err != nil {
		h.fail(w, "EventsNeedToBeApproved", err)
		return
	}
	h.respond(w, "EventsNeedToBeApproved", http.StatusOK, list)
}

func (h *Handler) UserEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}
	period := chi.URLParam(r, "period")
	h.Logger.Info("API", fmt.Sprintf("UserEvents: userId=%d period=%s", userID, period))

	var list []*models.Event
	var err error
	switch period {
	case "overdue":
		list, err = h.Service.GetUserOverdueEvents(r.Context(), userID)
	case "today":
		list, err = h.Service.GetUserTodayEvents(r.Context(), userID)
	case "future":
		list, err = h.Service.GetUserFutureEvents(r.Context(), userID)
	default:
		utils.WriteError(w, http.StatusNotFound, "Unknown period", fmt.Errorf("period %q", period))
		return
	}
	if err != nil {
		h.fail(w, "UserEvents", err)
		return
	}
	h.respond(w, "UserEvents", http.StatusOK, list)
}

// ---------------- HELPERS ----------------

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		h.Logger.Warn("API", fmt.Sprintf("invalid %s: %q", key, chi.URLParam(r, key)))
		utils.WriteError(w, http.StatusBadRequest, "Invalid "+key, err)
		return 0, false
	}
	return id, true
}

func (h *Handler) queryID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil || id <= 0 {
		utils.WriteValidationError(w, fmt.Errorf("%s is required", key))
		return 0, false
	}
	return id, true
}

func (h *Handler) decodeInput(w http.ResponseWriter, r *http.Request, op string) (models.EventInput, bool) {
	var in models.EventInput
	return in, h.decode(w, r, op, &in)
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, op string, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to decode request body: %v", op, err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.Validate.Struct(dst); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("%s: validation failed: %v", op, err))
		utils.WriteValidationError(w, err)
		return false
	}
	return true
}

func (h *Handler) respond(w http.ResponseWriter, op string, status int, body interface{}) {
	if err := utils.WriteJSON(w, status, body); err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to encode response: %v", op, err))
		return
	}
	h.Logger.Debug("API", fmt.Sprintf("%s: response sent", op))
}

// fail maps service errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, models.ErrEventNotFound):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusNotFound, "Event not found", err)
	case errors.Is(err, models.ErrInvalidWindow), errors.Is(err, models.ErrInvalidStatus):
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteValidationError(w, err)
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}
