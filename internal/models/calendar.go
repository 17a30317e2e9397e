package models

import "time"

// CalendarEventTimeLayout is the start/end layout expected by the calendar widget.
const CalendarEventTimeLayout = "2006-01-02 15:04:05"

// CalendarEvent is the flat presentation record of one event in the calendar feed.
type CalendarEvent struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Detail          string `json:"detail"`
	EventType       string `json:"eventType"`
	AllDay          bool   `json:"allDay"`
	Start           string `json:"start"`
	End             string `json:"end"`
	ClassName       string `json:"className"`
	BackgroundColor string `json:"backgroundColor"`
	OrderID         *int64 `json:"orderId"`
}

// CalendarFilter narrows the calendar feed. Empty id lists match nothing.
// A zero Start or End leaves that side of the window open.
type CalendarFilter struct {
	StaffIDs            []int64   `json:"staff_filters" validate:"dive,gt=0"`
	EventTypeIDs        []int64   `json:"event_type_filters" validate:"dive,gt=0"`
	NotAssignedStateIDs []int64   `json:"not_assigned_state_filters" validate:"dive,gt=0"`
	AccountManagerID    int64     `json:"account_manager_filter" validate:"gte=0"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end" validate:"omitempty,gtfield=Start"`
}

// EventInput carries the writable fields of an event on create and update.
type EventInput struct {
	Name              string        `json:"name" validate:"required,max=255"`
	EventTypeID       int64         `json:"event_type_id" validate:"required,gt=0"`
	EventStatusID     EventStatusID `json:"event_status_id" validate:"required,oneof=1 2 3"`
	StateID           *int64        `json:"state_id" validate:"omitempty,gt=0"`
	UserID            *int64        `json:"user_id" validate:"omitempty,gt=0"`
	CreatedBy         *int64        `json:"created_by" validate:"omitempty,gt=0"`
	OrderJobElementID *int64        `json:"order_job_element_id" validate:"omitempty,gt=0"`
	Address           string        `json:"address" validate:"max=500"`
	Description       string        `json:"description"`
	From              time.Time     `json:"from" validate:"required"`
	To                time.Time     `json:"to" validate:"required,gtefield=From"`
	IsAllDay          bool          `json:"is_all_day"`
}

// Apply copies the input onto e without touching identity, flags or timestamps.
func (in EventInput) Apply(e *Event) {
	e.Name = in.Name
	e.EventTypeID = in.EventTypeID
	e.EventStatusID = in.EventStatusID
	e.StateID = in.StateID
	e.UserID = in.UserID
	if in.CreatedBy != nil {
		e.CreatedBy = in.CreatedBy
	}
	e.OrderJobElementID = in.OrderJobElementID
	e.Address = in.Address
	e.Description = in.Description
	e.From = in.From.UTC()
	e.To = in.To.UTC()
	e.IsAllDay = in.IsAllDay
}
