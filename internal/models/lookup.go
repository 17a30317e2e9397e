package models

import (
	"github.com/uptrace/bun"
)

// EventStatusID is the persisted scheduling status of an event.
// Published and unpublished are derived from it, never stored.
type EventStatusID int64

const (
	EventStatusUnscheduled EventStatusID = 1
	EventStatusOnHold      EventStatusID = 2
	EventStatusScheduled   EventStatusID = 3
)

func (s EventStatusID) IsPublished() bool {
	return s != EventStatusOnHold && s != EventStatusUnscheduled
}

func (s EventStatusID) IsUnpublished() bool {
	return !s.IsPublished()
}

func (s EventStatusID) Valid() bool {
	switch s {
	case EventStatusUnscheduled, EventStatusOnHold, EventStatusScheduled:
		return true
	}
	return false
}

func (s EventStatusID) String() string {
	switch s {
	case EventStatusUnscheduled:
		return "unscheduled"
	case EventStatusOnHold:
		return "on-hold"
	case EventStatusScheduled:
		return "scheduled"
	default:
		return "unknown"
	}
}

const (
	EventTypeShoot             int64 = 1
	EventTypeProducer          int64 = 2
	EventTypeAdditionalShooter int64 = 3
	EventTypeShootAssistant    int64 = 4
	EventTypeDrone             int64 = 5
	EventTypeModelTalent       int64 = 6
	EventTypeEdit              int64 = 7
)

// ShootRelatedEventTypeIDs are the crew and equipment bookings that follow the shoot's time window.
func ShootRelatedEventTypeIDs() []int64 {
	return []int64{
		EventTypeProducer,
		EventTypeAdditionalShooter,
		EventTypeShootAssistant,
		EventTypeDrone,
		EventTypeModelTalent,
	}
}

func IsShootRelatedEventType(id int64) bool {
	for _, t := range ShootRelatedEventTypeIDs() {
		if t == id {
			return true
		}
	}
	return false
}

// EndOfDayType classifies what an end-of-day note reports on.
type EndOfDayType int64

const (
	EndOfDayTypeMedia EndOfDayType = 1
	EndOfDayTypeEvent EndOfDayType = 2
)

const StateIDNSW int64 = 1

const (
	RoleAdmin          int64 = 1
	RoleAccountManager int64 = 2
	RoleTeamLeader     int64 = 3
	RoleProduction     int64 = 4
	RoleCrew           int64 = 5
)

const OrderStatusCancelled int64 = 4

type EventStatus struct {
	bun.BaseModel `bun:"table:event_statuses,alias:es"`

	ID   EventStatusID `bun:"id,pk" json:"id"`
	Name string        `bun:"name,notnull" json:"name"`
}

type EventType struct {
	bun.BaseModel `bun:"table:event_types,alias:et"`

	ID          int64  `bun:"id,pk,autoincrement" json:"id"`
	Name        string `bun:"name,notnull" json:"name"`
	IsRecording bool   `bun:"is_recording,notnull,default:false" json:"is_recording"`
}

type State struct {
	bun.BaseModel `bun:"table:states,alias:st"`

	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	Name          string `bun:"name,notnull" json:"name"`
	Code          string `bun:"code" json:"code"`
	StateInCharge int64  `bun:"state_in_charge" json:"state_in_charge"`
}

type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

type Office struct {
	bun.BaseModel `bun:"table:offices,alias:o"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID             int64  `bun:"id,pk,autoincrement" json:"id"`
	Name           string `bun:"name,notnull" json:"name"`
	IsVideoProduct bool   `bun:"is_video_product,notnull,default:false" json:"is_video_product"`
}
