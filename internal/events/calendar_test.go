package events_test

import (
	"testing"
	"time"

	"ms-scheduling/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarFixture() *models.Event {
	production := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	return &models.Event{
		ID:                1,
		Name:              "Acme Launch",
		EventTypeID:       models.EventTypeShoot,
		EventStatusID:     models.EventStatusScheduled,
		OrderJobElementID: ptr(300),
		From:              time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC),
		To:                time.Date(2026, 3, 11, 1, 30, 0, 0, time.UTC),
		EventType:         &models.EventType{ID: models.EventTypeShoot, Name: "Shoot"},
		User:              &models.User{ID: 12, FirstName: "Sam", LastName: "Shooter", CalendarColor: "#ff0000"},
		OrderJobElement: &models.OrderJobElement{ID: 300, OrderJob: &models.OrderJob{
			ID:             200,
			OrderID:        ptr(100),
			ProductionDate: &production,
			Order: &models.Order{
				ID:             100,
				AccountManager: &models.User{FirstName: "Alice", LastName: "Manager"},
				Office:         &models.Office{Name: "Sydney"},
			},
		}},
	}
}

func TestTransformEventsForCalendar_ShootEvent(t *testing.T) {
	s := newService(new(MockDBLayer), nil, time.Now())

	out := s.TransformEventsForCalendar([]*models.Event{calendarFixture()})
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Shoot - Acme Launch", got.Title)
	assert.Equal(t, "Shoot - Sam Shooter - Alice Manager - Sydney", got.Detail)
	assert.Equal(t, "shoot", got.EventType)
	assert.Equal(t, "event-1", got.ClassName)
	assert.Equal(t, "2026-03-11 09:00:00", got.Start)
	assert.Equal(t, "2026-03-11 12:30:00", got.End)
	assert.Equal(t, "#ff0000", got.BackgroundColor)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, int64(100), *got.OrderID)
}

func TestTransformEventsForCalendar_CancelledOrderAndEditDate(t *testing.T) {
	s := newService(new(MockDBLayer), nil, time.Now())

	e := calendarFixture()
	e.EventTypeID = models.EventTypeEdit
	e.EventType = &models.EventType{ID: models.EventTypeEdit, Name: "Edit"}
	e.User = nil
	e.OrderJob().Order.OrderStatusID = models.OrderStatusCancelled

	got := s.TransformEventsForCalendar([]*models.Event{e})[0]
	assert.Equal(t, "ORDER CANCELLED - Edit - Acme Launch", got.Title)
	assert.Equal(t, "ORDER CANCELLED - Edit - Alice Manager - Sydney<br>Wed 11/03/2026 10:00 AM", got.Detail)
	assert.Equal(t, "#3a87ad", got.BackgroundColor)
}

func TestTransformEventsForCalendar_MissingTypeIsLeftOut(t *testing.T) {
	s := newService(new(MockDBLayer), nil, time.Now())

	e := calendarFixture()
	e.EventType = nil
	e.OrderJobElement = nil
	e.EventStatusID = models.EventStatusOnHold

	got := s.TransformEventsForCalendar([]*models.Event{e, nil})
	require.Len(t, got, 1)
	assert.Equal(t, "Acme Launch", got[0].Title)
	assert.Equal(t, "Sam Shooter", got[0].Detail)
	assert.Equal(t, "", got[0].EventType)
	assert.Nil(t, got[0].OrderID)
	assert.Equal(t, "event-1", got[0].ClassName)
}
