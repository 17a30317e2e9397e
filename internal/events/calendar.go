package events

import (
	"fmt"
	"strings"

	"ms-scheduling/internal/models"
)

const (
	CalendarTextError      = "Error occur"
	OrderCancelledPrefix   = "ORDER CANCELLED"
	productionDateLayout   = "Mon 02/01/2006 03:04 PM"
	calendarTitleSeparator = " - "
)

// TransformEventsForCalendar flattens events into the records rendered by the calendar widget.
func (s *EventService) TransformEventsForCalendar(events []*models.Event) []models.CalendarEvent {
	loc := s.location()
	out := make([]models.CalendarEvent, 0, len(events))
	for _, e := range events {
		if e == nil {
			continue
		}
		title, detail := s.calendarText(e)

		color := s.Config.DefaultColor
		if e.User != nil && e.User.CalendarColor != "" {
			color = e.User.CalendarColor
		}

		var orderID *int64
		if id := e.OrderID(); id != 0 {
			orderID = &id
		}

		out = append(out, models.CalendarEvent{
			ID:              e.ID,
			Title:           title,
			Detail:          detail,
			EventType:       strings.ToLower(eventTypeName(e)),
			AllDay:          e.IsAllDay,
			Start:           e.From.In(loc).Format(models.CalendarEventTimeLayout),
			End:             e.To.In(loc).Format(models.CalendarEventTimeLayout),
			ClassName:       calendarClassName(e),
			BackgroundColor: color,
			OrderID:         orderID,
		})
	}
	return out
}

// calendarText builds title and detail. A failure degrades only the part that failed to CalendarTextError.
func (s *EventService) calendarText(e *models.Event) (title, detail string) {
	return s.safeText(e, "title", func() string { return calendarTitle(e) }),
		s.safeText(e, "detail", func() string { return s.calendarDetail(e) })
}

func (s *EventService) safeText(e *models.Event, part string, build func() string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Warn("CALENDAR", fmt.Sprintf("event #%d %s: %v", e.ID, part, r))
			text = CalendarTextError
		}
	}()
	return build()
}

func calendarTitle(e *models.Event) string {
	parts := make([]string, 0, 3)
	if e.Order().IsCancelled() {
		parts = append(parts, OrderCancelledPrefix)
	}
	parts = append(parts, eventTypeName(e), e.Name)
	return joinNonEmpty(parts)
}

func (s *EventService) calendarDetail(e *models.Event) string {
	parts := make([]string, 0, 5)
	order := e.Order()
	if order.IsCancelled() {
		parts = append(parts, OrderCancelledPrefix)
	}
	parts = append(parts, eventTypeName(e), e.User.FullName())
	if order != nil {
		parts = append(parts, order.AccountManager.FullName())
		if order.Office != nil {
			parts = append(parts, order.Office.Name)
		}
	}
	detail := joinNonEmpty(parts)

	if !e.IsShootOrShootRelated() {
		if job := e.OrderJob(); job != nil && job.ProductionDate != nil {
			detail += "<br>" + job.ProductionDate.In(s.location()).Format(productionDateLayout)
		}
	}
	return detail
}

func eventTypeName(e *models.Event) string {
	if e.EventType == nil {
		return ""
	}
	return e.EventType.Name
}

func calendarClassName(e *models.Event) string {
	if e.ID == 0 {
		return ""
	}
	return fmt.Sprintf("event-%d", e.ID)
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, calendarTitleSeparator)
}
