package events_test

import (
	"testing"

	"ms-scheduling/internal/events"
	"ms-scheduling/internal/models"

	"github.com/stretchr/testify/assert"
)

func statusEvents() []*models.Event {
	nsw := &models.State{ID: 1, Name: "NSW"}
	vic := &models.State{ID: 2, Name: "VIC"}
	return []*models.Event{
		{ID: 1, EventStatusID: models.EventStatusUnscheduled, StateID: ptr(1), State: nsw},
		{ID: 2, EventStatusID: models.EventStatusOnHold, StateID: ptr(2), State: vic},
		{ID: 3, EventStatusID: models.EventStatusScheduled, StateID: ptr(1), State: nsw},
		{ID: 4, EventStatusID: models.EventStatusUnscheduled},
		{ID: 5, EventStatusID: models.EventStatusOnHold, StateID: ptr(1), State: nsw},
		{ID: 6, EventStatusID: models.EventStatusScheduled, State: &models.State{ID: 9, Name: "  "}},
	}
}

func ids(list []*models.Event) []int64 {
	out := make([]int64, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}

func TestFilterEventsByEventStatus_ReturnsExactSubset(t *testing.T) {
	all := statusEvents()
	for _, status := range []models.EventStatusID{models.EventStatusUnscheduled, models.EventStatusOnHold, models.EventStatusScheduled} {
		got := events.FilterEventsByEventStatus(all, status)
		for _, e := range got {
			assert.Equal(t, status, e.EventStatusID)
		}
		want := 0
		for _, e := range all {
			if e.EventStatusID == status {
				want++
			}
		}
		assert.Len(t, got, want, "status %s", status)
	}
}

func TestCategorizeEventsByState_IsPartition(t *testing.T) {
	all := statusEvents()
	buckets := events.CategorizeEventsByState(all)

	seen := make(map[int64]int)
	for _, list := range buckets {
		for _, e := range list {
			seen[e.ID]++
		}
	}
	assert.Len(t, seen, len(all))
	for id, n := range seen {
		assert.Equal(t, 1, n, "event %d", id)
	}

	assert.ElementsMatch(t, []int64{1, 3, 5}, ids(buckets["nsw"]))
	assert.ElementsMatch(t, []int64{2}, ids(buckets["vic"]))
	assert.ElementsMatch(t, []int64{4, 6}, ids(buckets[events.StateOther]))
}

func TestFilterUnscheduledAndOnHoldByStates(t *testing.T) {
	all := statusEvents()

	unscheduled := events.FilterUnscheduledEventsByStates(all)
	assert.ElementsMatch(t, []int64{1}, ids(unscheduled["nsw"]))
	assert.ElementsMatch(t, []int64{4}, ids(unscheduled[events.StateOther]))

	onHold := events.FilterOnHoldEventsByStates(all)
	assert.ElementsMatch(t, []int64{5}, ids(onHold["nsw"]))
	assert.ElementsMatch(t, []int64{2}, ids(onHold["vic"]))
}

func TestFilterBayEvents(t *testing.T) {
	all := statusEvents()

	assert.Equal(t, []int64{1}, ids(events.FilterBayEventsNSW(all, models.EventStatusUnscheduled)))
	assert.Equal(t, []int64{4}, ids(events.FilterBayEventsOtherStates(all, models.EventStatusUnscheduled)))
	assert.Equal(t, []int64{2}, ids(events.FilterBayEventsOtherStates(all, models.EventStatusOnHold)))
}

func TestFilterUnpublishedEvents(t *testing.T) {
	assert.Equal(t, []int64{1, 2, 4, 5}, ids(events.FilterUnpublishedEvents(statusEvents())))
}

func TestFilterEventByType(t *testing.T) {
	list := []*models.Event{
		{ID: 1, EventTypeID: models.EventTypeShoot},
		{ID: 2, EventTypeID: models.EventTypeProducer},
		{ID: 3, EventTypeID: models.EventTypeEdit},
	}
	assert.Equal(t, []int64{1, 2}, ids(events.FilterEventByType(list, []int64{models.EventTypeShoot, models.EventTypeProducer})))
	assert.Empty(t, events.FilterEventByType(list, nil))
}

func eodEvent(id int64, video bool, types ...models.EndOfDayType) *models.Event {
	job := &models.OrderJob{ID: id}
	if video {
		job.Video = &models.Video{ID: id}
	}
	e := &models.Event{ID: id, OrderJobElement: &models.OrderJobElement{OrderJob: job}}
	for _, typ := range types {
		e.EndOfDayNotes = append(e.EndOfDayNotes, &models.EndOfDayNote{EventID: id, EndOfDayTypeID: typ})
	}
	return e
}

func TestEndOfDayFilters(t *testing.T) {
	list := []*models.Event{
		eodEvent(1, false),
		eodEvent(2, true, models.EndOfDayTypeMedia),
		eodEvent(3, true),
		eodEvent(4, false, models.EndOfDayTypeEvent),
		eodEvent(5, false, models.EndOfDayTypeMedia, models.EndOfDayTypeEvent),
		{ID: 6},
	}

	assert.Equal(t, []int64{1, 6}, ids(events.FilterEventsWithoutVideoAndEOD(list)))
	assert.Equal(t, []int64{2}, ids(events.FilterEventsWithVideoAndEOD(list)))
	assert.Equal(t, []int64{3}, ids(events.FilterEventsWithVideoAndWithoutEOD(list)))
	assert.Equal(t, []int64{4, 5}, ids(events.FilterEventsWithoutVideoAndWithEOD(list)))
	assert.Equal(t, []int64{4}, ids(events.FilterEventsOnlyHasEventEOD(list)))
	assert.Equal(t, []int64{2}, ids(events.FilterEventsOnlyHasMediaEOD(list)))
	assert.Equal(t, []int64{1, 3, 6}, ids(events.FilterEventsWithoutEOD(list)))
	assert.Equal(t, []int64{5}, ids(events.FilterEventsWithMediaAndEventEOD(list)))
}

func orderEvent(id, orderID int64, am, tl *int64) *models.Event {
	return &models.Event{
		ID: id,
		OrderJobElement: &models.OrderJobElement{OrderJob: &models.OrderJob{
			OrderID: &orderID,
			Order:   &models.Order{ID: orderID, AccountManagerID: am, TeamLeaderID: tl},
		}},
	}
}

func TestGroupEventsByStaffID(t *testing.T) {
	list := []*models.Event{
		orderEvent(1, 100, ptr(10), ptr(11)),
		orderEvent(2, 101, ptr(10), ptr(10)),
		orderEvent(3, 102, nil, ptr(11)),
		{ID: 4},
	}

	grouped := events.GroupEventsByStaffID(list)
	assert.Equal(t, []int64{1, 2}, ids(grouped[10]))
	assert.Equal(t, []int64{1, 3}, ids(grouped[11]))
	assert.Len(t, grouped, 2)
}

func TestGroupEventsByOrderID_KeepsFirstSeenOrder(t *testing.T) {
	list := []*models.Event{
		orderEvent(1, 101, nil, nil),
		orderEvent(2, 100, nil, nil),
		orderEvent(3, 101, nil, nil),
		{ID: 4},
	}

	groups := events.GroupEventsByOrderID(list)
	assert.Len(t, groups, 2)
	assert.Equal(t, int64(101), groups[0].OrderID)
	assert.Equal(t, []int64{1, 3}, ids(groups[0].Events))
	assert.Equal(t, int64(100), groups[1].OrderID)
	assert.Equal(t, []int64{2}, ids(groups[1].Events))
}
