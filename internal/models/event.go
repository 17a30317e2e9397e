package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID                int64         `bun:"id,pk,autoincrement" json:"id"`
	Name              string        `bun:"name" json:"name"`
	OrderJobElementID *int64        `bun:"order_job_element_id" json:"order_job_element_id"`
	EventTypeID       int64         `bun:"event_type_id,notnull" json:"event_type_id"`
	EventStatusID     EventStatusID `bun:"event_status_id,notnull" json:"event_status_id"`
	StateID           *int64        `bun:"state_id" json:"state_id"`
	UserID            *int64        `bun:"user_id" json:"user_id"`
	CreatedBy         *int64        `bun:"created_by" json:"created_by"`
	Address           string        `bun:"address" json:"address"`
	Description       string        `bun:"description" json:"description"`
	From              time.Time     `bun:"starts_at,notnull" json:"from"`
	To                time.Time     `bun:"ends_at,notnull" json:"to"`
	IsAllDay          bool          `bun:"is_all_day,notnull,default:false" json:"is_all_day"`
	IsCompleted       bool          `bun:"is_completed,notnull,default:false" json:"is_completed"`
	IsApproved        bool          `bun:"is_approved,notnull,default:false" json:"is_approved"`
	IsVerified        bool          `bun:"is_verified,notnull,default:false" json:"is_verified"`
	CreatedAt         time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time     `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	DeletedAt         time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"-"`

	User            *User            `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	EventType       *EventType       `bun:"rel:belongs-to,join:event_type_id=id" json:"event_type,omitempty"`
	EventStatus     *EventStatus     `bun:"rel:belongs-to,join:event_status_id=id" json:"event_status,omitempty"`
	State           *State           `bun:"rel:belongs-to,join:state_id=id" json:"state,omitempty"`
	OrderJobElement *OrderJobElement `bun:"rel:belongs-to,join:order_job_element_id=id" json:"order_job_element,omitempty"`
	EndOfDayNotes   []*EndOfDayNote  `bun:"rel:has-many,join:id=event_id" json:"end_of_day_notes,omitempty"`
}

// Duration is the length of the event window.
func (e *Event) Duration() time.Duration {
	return e.To.Sub(e.From)
}

// MoveTo shifts the window to start at from, keeping the event's own length.
func (e *Event) MoveTo(from time.Time) {
	length := e.Duration()
	e.From = from
	e.To = from.Add(length)
}

func (e *Event) ValidateWindow() error {
	if e.To.Before(e.From) {
		return ErrInvalidWindow
	}
	return nil
}

func (e *Event) IsJobEvent() bool {
	return e.OrderJobElementID != nil && *e.OrderJobElementID != 0
}

func (e *Event) IsJobShootEvent() bool {
	return e.IsJobEvent() && e.EventTypeID == EventTypeShoot
}

func (e *Event) IsShootOrShootRelated() bool {
	return e.EventTypeID == EventTypeShoot || IsShootRelatedEventType(e.EventTypeID)
}

func (e *Event) HasVideo() bool {
	return e.OrderJob().HasVideo()
}

func (e *Event) IsPublished() bool {
	return e.EventStatusID.IsPublished()
}

// OrderJob walks event -> element -> job and returns nil when any link is not loaded.
func (e *Event) OrderJob() *OrderJob {
	if e.OrderJobElement == nil {
		return nil
	}
	return e.OrderJobElement.OrderJob
}

// Order walks event -> element -> job -> order.
func (e *Event) Order() *Order {
	job := e.OrderJob()
	if job == nil {
		return nil
	}
	return job.Order
}

func (e *Event) OrderID() int64 {
	if job := e.OrderJob(); job != nil && job.OrderID != nil {
		return *job.OrderID
	}
	return 0
}

func (e *Event) AssigneeID() int64 {
	if e.UserID == nil {
		return 0
	}
	return *e.UserID
}

type EndOfDayNote struct {
	bun.BaseModel `bun:"table:end_of_day_notes,alias:eod"`

	ID             int64        `bun:"id,pk,autoincrement" json:"id"`
	EventID        int64        `bun:"event_id,notnull" json:"event_id"`
	EndOfDayTypeID EndOfDayType `bun:"end_of_day_type_id,notnull" json:"end_of_day_type_id"`
	Note           string       `bun:"note" json:"note"`
	CreatedAt      time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// EndOfDayTypes reports which note types are attached to the event.
func (e *Event) EndOfDayTypes() (media, event bool) {
	for _, note := range e.EndOfDayNotes {
		switch note.EndOfDayTypeID {
		case EndOfDayTypeMedia:
			media = true
		case EndOfDayTypeEvent:
			event = true
		}
	}
	return media, event
}
