package events

import (
	"strings"

	"ms-scheduling/internal/models"
)

// StateOther is the bucket for events without a state.
const StateOther = "other"

func filterEvents(events []*models.Event, keep func(*models.Event) bool) []*models.Event {
	out := make([]*models.Event, 0, len(events))
	for _, e := range events {
		if e != nil && keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func FilterEventsByEventStatus(events []*models.Event, status models.EventStatusID) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return e.EventStatusID == status
	})
}

// CategorizeEventsByState buckets events by lower-cased state name. Every event lands in exactly one bucket.
func CategorizeEventsByState(events []*models.Event) map[string][]*models.Event {
	out := make(map[string][]*models.Event)
	for _, e := range events {
		if e == nil {
			continue
		}
		key := StateOther
		if e.State != nil && strings.TrimSpace(e.State.Name) != "" {
			key = strings.ToLower(e.State.Name)
		}
		out[key] = append(out[key], e)
	}
	return out
}

func FilterUnscheduledEventsByStates(events []*models.Event) map[string][]*models.Event {
	return CategorizeEventsByState(FilterEventsByEventStatus(events, models.EventStatusUnscheduled))
}

func FilterOnHoldEventsByStates(events []*models.Event) map[string][]*models.Event {
	return CategorizeEventsByState(FilterEventsByEventStatus(events, models.EventStatusOnHold))
}

// FilterBayEventsNSW keeps events with the status that are located in NSW.
func FilterBayEventsNSW(events []*models.Event, status models.EventStatusID) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return e.EventStatusID == status && e.StateID != nil && *e.StateID == models.StateIDNSW
	})
}

// FilterBayEventsOtherStates keeps events with the status outside NSW, including stateless ones.
func FilterBayEventsOtherStates(events []*models.Event, status models.EventStatusID) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return e.EventStatusID == status && (e.StateID == nil || *e.StateID != models.StateIDNSW)
	})
}

func FilterEventByType(events []*models.Event, typeIDs []int64) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return containsID(typeIDs, e.EventTypeID)
	})
}

func FilterUnpublishedEvents(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return e.EventStatusID.IsUnpublished()
	})
}

// End-of-day filters. Video presence is read from the loaded element -> job -> video chain.

func FilterEventsWithoutVideoAndEOD(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return len(e.EndOfDayNotes) == 0 && !e.HasVideo()
	})
}

func FilterEventsWithVideoAndEOD(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return len(e.EndOfDayNotes) > 0 && e.HasVideo()
	})
}

func FilterEventsWithVideoAndWithoutEOD(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return len(e.EndOfDayNotes) == 0 && e.HasVideo()
	})
}

func FilterEventsWithoutVideoAndWithEOD(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return len(e.EndOfDayNotes) > 0 && !e.HasVideo()
	})
}

func FilterEventsOnlyHasEventEOD(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		media, event := e.EndOfDayTypes()
		return event && !media
	})
}

func FilterEventsOnlyHasMediaEOD(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		media, event := e.EndOfDayTypes()
		return media && !event
	})
}

func FilterEventsWithoutEOD(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		return len(e.EndOfDayNotes) == 0
	})
}

func FilterEventsWithMediaAndEventEOD(events []*models.Event) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		media, event := e.EndOfDayTypes()
		return media && event
	})
}

// FilterEventsToIncludeEditStateEvents keeps events whose job state, or alternate edit state, is one of stateIDs.
func FilterEventsToIncludeEditStateEvents(events []*models.Event, stateIDs []int64) []*models.Event {
	return filterEvents(events, func(e *models.Event) bool {
		job := e.OrderJob()
		if job == nil {
			return false
		}
		if job.StateID != nil && containsID(stateIDs, *job.StateID) {
			return true
		}
		return job.AlternateEditStateID != nil && containsID(stateIDs, *job.AlternateEditStateID)
	})
}

// GroupEventsByStaffID files each event under its order's account manager and team leader.
// An order whose manager also leads it is filed once.
func GroupEventsByStaffID(events []*models.Event) map[int64][]*models.Event {
	out := make(map[int64][]*models.Event)
	for _, e := range events {
		if e == nil {
			continue
		}
		order := e.Order()
		if order == nil {
			continue
		}
		var am int64
		if order.AccountManagerID != nil && *order.AccountManagerID != 0 {
			am = *order.AccountManagerID
			out[am] = append(out[am], e)
		}
		if order.TeamLeaderID != nil && *order.TeamLeaderID != 0 && *order.TeamLeaderID != am {
			out[*order.TeamLeaderID] = append(out[*order.TeamLeaderID], e)
		}
	}
	return out
}

// OrderEvents is the set of events that belong to one order.
type OrderEvents struct {
	OrderID int64
	Events  []*models.Event
}

// GroupEventsByOrderID groups events by order id in first-seen order. Events without an order are dropped.
func GroupEventsByOrderID(events []*models.Event) []OrderEvents {
	index := make(map[int64]int)
	var out []OrderEvents
	for _, e := range events {
		if e == nil {
			continue
		}
		orderID := e.OrderID()
		if orderID == 0 {
			continue
		}
		i, ok := index[orderID]
		if !ok {
			i = len(out)
			index[orderID] = i
			out = append(out, OrderEvents{OrderID: orderID})
		}
		out[i].Events = append(out[i].Events, e)
	}
	return out
}
