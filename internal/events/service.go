package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ms-scheduling/internal/config"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/models"
)

type DBLayer interface {
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, event *models.Event) error
	UpdateShootEvent(ctx context.Context, event *models.Event) ([]*models.Event, error)
	SoftDeleteEvent(ctx context.Context, id int64) error
	ForceDeleteEvent(ctx context.Context, id int64) error
	UpdateEventStatus(ctx context.Context, id int64, status models.EventStatusID) error
	ApproveEvent(ctx context.Context, id int64) error
	UnassignJobEvents(ctx context.Context, jobID int64) (int64, error)

	SuggestEventNames(ctx context.Context, text string, limit int) ([]string, error)
	SearchEventsByName(ctx context.Context, keyword string) ([]*models.Event, error)
	SearchEventsByOrderID(ctx context.Context, orderID int64) ([]*models.Event, error)

	GetEventsForCalendar(ctx context.Context, filter models.CalendarFilter) ([]*models.Event, error)
	GetEventsByStatuses(ctx context.Context, statuses ...models.EventStatusID) ([]*models.Event, error)
	GetEventsNeedToBeVerified(ctx context.Context, stateID int64, since, until time.Time, excludeProductID int64) ([]*models.Event, error)
	GetUnapprovedRecordingEvents(ctx context.Context) ([]*models.Event, error)
	GetStateIDsInCharge(ctx context.Context, stateID int64) ([]int64, error)
	GetUserOverdueEvents(ctx context.Context, userID int64, until time.Time) ([]*models.Event, error)
	GetUserEventsStartingBetween(ctx context.Context, userID int64, from, to time.Time) ([]*models.Event, error)
}

// LookupSource serves the reference lists of the calendar page. The database and the redis cache both implement it.
type LookupSource interface {
	GetCalendarUsers(ctx context.Context) ([]*models.User, error)
	GetAccountManagers(ctx context.Context) ([]*models.User, error)
	GetEventTypes(ctx context.Context) ([]*models.EventType, error)
	GetStates(ctx context.Context) ([]*models.State, error)
}

type EventService struct {
	DB      DBLayer
	Lookups LookupSource
	Logger  *logger.Logger
	Config  config.CalendarConfig
	Now     func() time.Time
}

func NewEventService(db DBLayer, lookups LookupSource, log *logger.Logger, cfg config.CalendarConfig) *EventService {
	if log == nil {
		log = logger.Discard()
	}
	return &EventService{DB: db, Lookups: lookups, Logger: log, Config: cfg, Now: time.Now}
}

func (s *EventService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *EventService) location() *time.Location {
	return s.Config.Location()
}

// ---------------- EVENTS ----------------

func (s *EventService) LoadByID(ctx context.Context, id int64) (*models.Event, error) {
	return s.DB.GetEventByID(ctx, id)
}

func (s *EventService) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	event := &models.Event{}
	in.Apply(event)
	if !event.EventStatusID.Valid() {
		return nil, models.ErrInvalidStatus
	}
	if err := event.ValidateWindow(); err != nil {
		return nil, err
	}
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.Logger.LogEvent("CREATE", event.ID, fmt.Sprintf("%s (%s)", event.Name, event.EventStatusID))
	return s.DB.GetEventByID(ctx, event.ID)
}

// UpdateEvent writes the input onto the event. A job shoot event also moves its job and crew events.
func (s *EventService) UpdateEvent(ctx context.Context, id int64, in models.EventInput) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.Apply(event)
	if !event.EventStatusID.Valid() {
		return nil, models.ErrInvalidStatus
	}
	if err := event.ValidateWindow(); err != nil {
		return nil, err
	}
	if err := s.saveEvent(ctx, event); err != nil {
		return nil, err
	}
	return s.DB.GetEventByID(ctx, id)
}

func (s *EventService) saveEvent(ctx context.Context, event *models.Event) error {
	if !event.IsJobShootEvent() {
		if err := s.DB.UpdateEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to update event %d: %w", event.ID, err)
		}
		s.Logger.LogEvent("UPDATE", event.ID, event.Name)
		return nil
	}

	related, err := s.DB.UpdateShootEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to reschedule shoot event %d: %w", event.ID, err)
	}
	s.Logger.LogCascade(event.ID, fmt.Sprintf("production date %s, moved %d related events",
		event.From.In(s.location()).Format(time.RFC3339), len(related)))
	return nil
}

func (s *EventService) DeleteEventByID(ctx context.Context, id int64) error {
	if err := s.DB.SoftDeleteEvent(ctx, id); err != nil {
		return err
	}
	s.Logger.LogEvent("DELETE", id, "soft deleted")
	return nil
}

func (s *EventService) ForceDeleteEvent(ctx context.Context, id int64) error {
	if err := s.DB.ForceDeleteEvent(ctx, id); err != nil {
		return err
	}
	s.Logger.LogEvent("FORCE_DELETE", id, "removed permanently")
	return nil
}

func (s *EventService) UpdateEventStatus(ctx context.Context, event *models.Event, status models.EventStatusID) error {
	if !status.Valid() {
		return models.ErrInvalidStatus
	}
	if err := s.DB.UpdateEventStatus(ctx, event.ID, status); err != nil {
		return err
	}
	s.Logger.LogEvent("STATUS", event.ID, fmt.Sprintf("%s -> %s", event.EventStatusID, status))
	event.EventStatusID = status
	return nil
}

func (s *EventService) Approve(ctx context.Context, id int64) error {
	if err := s.DB.ApproveEvent(ctx, id); err != nil {
		return err
	}
	s.Logger.LogEvent("APPROVE", id, "approved")
	return nil
}

// ---------------- SEARCH ----------------

func (s *EventService) EventNameSearchSuggestion(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}
	return s.DB.SuggestEventNames(ctx, text, s.Config.SearchSuggestionLimit)
}

// SearchEvents treats a numeric keyword as an order id and anything else as part of the event name.
func (s *EventService) SearchEvents(ctx context.Context, keyword string) ([]*models.Event, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []*models.Event{}, nil
	}
	if orderID, err := strconv.ParseInt(keyword, 10, 64); err == nil {
		return s.DB.SearchEventsByOrderID(ctx, orderID)
	}
	return s.DB.SearchEventsByName(ctx, keyword)
}

// ---------------- SCHEDULING ----------------

func (s *EventService) ScheduleEventToDateTime(ctx context.Context, id int64, from time.Time) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.UpdateEventToDateTime(ctx, event, from, true); err != nil {
		return nil, err
	}
	return event, nil
}

// UpdateEventToDateTime moves the event to start at from keeping its length, optionally marking it scheduled.
func (s *EventService) UpdateEventToDateTime(ctx context.Context, event *models.Event, from time.Time, schedule bool) error {
	event.MoveTo(from.UTC())
	if schedule {
		event.EventStatusID = models.EventStatusScheduled
	}
	return s.saveEvent(ctx, event)
}

func (s *EventService) CheckAndGetDateTimeChangeURL(ctx context.Context, id int64, in models.EventInput) (string, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return "", err
	}
	return CheckEventDateTimeChange(event, in), nil
}

// CheckEventDateTimeChange returns the order's date-change email page when a job shoot event gets a new window.
func CheckEventDateTimeChange(event *models.Event, in models.EventInput) string {
	if event == nil || !event.IsJobShootEvent() {
		return ""
	}
	if event.From.Equal(in.From) && event.To.Equal(in.To) {
		return ""
	}
	orderID := event.OrderID()
	if orderID == 0 {
		return ""
	}
	return fmt.Sprintf("/orders/%d/datetime-email", orderID)
}

func (s *EventService) UnassignJobEvents(ctx context.Context, jobID int64) (int64, error) {
	n, err := s.DB.UnassignJobEvents(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to unassign events of job %d: %w", jobID, err)
	}
	s.Logger.Info("EVENT", fmt.Sprintf("job #%d - unassigned %d events", jobID, n))
	return n, nil
}

// ---------------- READS ----------------

func (s *EventService) GetEventsForCalendar(ctx context.Context, filter models.CalendarFilter) ([]models.CalendarEvent, error) {
	events, err := s.DB.GetEventsForCalendar(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.TransformEventsForCalendar(events), nil
}

func (s *EventService) GetUnscheduledEvents(ctx context.Context) ([]*models.Event, error) {
	return s.DB.GetEventsByStatuses(ctx, models.EventStatusUnscheduled)
}

func (s *EventService) GetOnHoldEvents(ctx context.Context) ([]*models.Event, error) {
	return s.DB.GetEventsByStatuses(ctx, models.EventStatusOnHold)
}

func (s *EventService) GetUnpublishedEvents(ctx context.Context) ([]*models.Event, error) {
	return s.DB.GetEventsByStatuses(ctx, models.EventStatusUnscheduled, models.EventStatusOnHold)
}

// GetEventsNeedToBeVerified lists events that ended yesterday or earlier, within the admin end-of-day window.
func (s *EventService) GetEventsNeedToBeVerified(ctx context.Context, stateID int64) ([]*models.Event, error) {
	now := s.now()
	until := EndOfDay(now.AddDate(0, 0, -1), s.location())
	since := now.AddDate(0, 0, -s.Config.EODAdminDaysLimit)
	return s.DB.GetEventsNeedToBeVerified(ctx, stateID, since, until, s.Config.InRoomProductID)
}

func (s *EventService) GetEventsNeedToBeApproved(ctx context.Context, stateID int64) ([]*models.Event, error) {
	stateIDs, err := s.DB.GetStateIDsInCharge(ctx, stateID)
	if err != nil {
		return nil, err
	}
	events, err := s.DB.GetUnapprovedRecordingEvents(ctx)
	if err != nil {
		return nil, err
	}
	return FilterEventsToIncludeEditStateEvents(events, stateIDs), nil
}

func (s *EventService) GetStateInChargeStateIDs(ctx context.Context, stateID int64) ([]int64, error) {
	return s.DB.GetStateIDsInCharge(ctx, stateID)
}

func (s *EventService) GetUserOverdueEvents(ctx context.Context, userID int64) ([]*models.Event, error) {
	until := EndOfDay(s.now().AddDate(0, 0, -1), s.location())
	return s.DB.GetUserOverdueEvents(ctx, userID, until)
}

func (s *EventService) GetUserTodayEvents(ctx context.Context, userID int64) ([]*models.Event, error) {
	now := s.now()
	return s.DB.GetUserEventsStartingBetween(ctx, userID, StartOfDay(now, s.location()), EndOfDay(now, s.location()))
}

// GetUserFutureEvents lists the user's events over the seven days after today.
func (s *EventService) GetUserFutureEvents(ctx context.Context, userID int64) ([]*models.Event, error) {
	tomorrow := StartOfDay(s.now(), s.location()).AddDate(0, 0, 1)
	return s.DB.GetUserEventsStartingBetween(ctx, userID, tomorrow, EndOfDay(tomorrow.AddDate(0, 0, 7), s.location()))
}

// ---------------- CALENDAR PAGE ----------------

type CalendarIndex struct {
	UsersGrouped             map[string][]*models.User  `json:"users_grouped"`
	EventTypes               []*models.EventType        `json:"event_types"`
	States                   []*models.State            `json:"states"`
	AccountManagers          []*models.User             `json:"account_managers"`
	UnscheduledEventsByState map[string][]*models.Event `json:"unscheduled_events_by_state"`
	OnHoldEventsByState      map[string][]*models.Event `json:"on_hold_events_by_state"`
}

// CalendarIndex gathers the filter lists and the unpublished event buckets of the calendar page.
func (s *EventService) CalendarIndex(ctx context.Context) (*CalendarIndex, error) {
	users, err := s.Lookups.GetCalendarUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	types, err := s.Lookups.GetEventTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load event types: %w", err)
	}
	states, err := s.Lookups.GetStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load states: %w", err)
	}
	managers, err := s.Lookups.GetAccountManagers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load account managers: %w", err)
	}
	unpublished, err := s.GetUnpublishedEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load unpublished events: %w", err)
	}

	return &CalendarIndex{
		UsersGrouped:             GroupUsersByRole(users),
		EventTypes:               types,
		States:                   states,
		AccountManagers:          managers,
		UnscheduledEventsByState: FilterUnscheduledEventsByStates(unpublished),
		OnHoldEventsByState:      FilterOnHoldEventsByStates(unpublished),
	}, nil
}

// GroupUsersByRole keys users by role name. Users without a loaded role go under "Other".
func GroupUsersByRole(users []*models.User) map[string][]*models.User {
	out := make(map[string][]*models.User)
	for _, u := range users {
		if u == nil {
			continue
		}
		key := "Other"
		if u.Role != nil && u.Role.Name != "" {
			key = u.Role.Name
		}
		out[key] = append(out[key], u)
	}
	return out
}
