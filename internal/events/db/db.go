package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-scheduling/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- EVENTS ----------------

// eventQuery selects events with the relations the calendar, search and notification views read.
func eventQuery(q *bun.SelectQuery, model interface{}) *bun.SelectQuery {
	return q.Model(model).
		Relation("User").
		Relation("EventType").
		Relation("EventStatus").
		Relation("State").
		Relation("OrderJobElement").
		Relation("OrderJobElement.OrderJob").
		Relation("OrderJobElement.OrderJob.Product").
		Relation("OrderJobElement.OrderJob.State").
		Relation("OrderJobElement.OrderJob.Video").
		Relation("OrderJobElement.OrderJob.Order").
		Relation("OrderJobElement.OrderJob.Order.AccountManager").
		Relation("OrderJobElement.OrderJob.Order.TeamLeader").
		Relation("OrderJobElement.OrderJob.Order.Office").
		Relation("EndOfDayNotes")
}

// GetEventByID → fetch one event with its relations
func (d *DB) GetEventByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	err := eventQuery(d.Bun.NewSelect(), &event).
		Where("e.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", models.ErrEventNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// CreateEvent → insert new event
func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

// UpdateEvent → update writable fields
func (d *DB) UpdateEvent(ctx context.Context, event *models.Event) error {
	return updateEvent(ctx, d.Bun, event)
}

func updateEvent(ctx context.Context, idb bun.IDB, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	res, err := idb.NewUpdate().
		Model(event).
		Column("name", "event_type_id", "event_status_id", "state_id", "user_id", "created_by",
			"order_job_element_id", "address", "description", "starts_at", "ends_at", "is_all_day", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res, event.ID)
}

// UpdateShootEvent saves a job shoot event, copies its start onto the job's production date and moves
// every shoot-related event on the same element to the new start. The writes share one transaction.
func (d *DB) UpdateShootEvent(ctx context.Context, event *models.Event) ([]*models.Event, error) {
	if event.OrderJobElementID == nil {
		return nil, fmt.Errorf("event %d is not linked to a job element", event.ID)
	}

	var moved []*models.Event
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := updateEvent(ctx, tx, event); err != nil {
			return fmt.Errorf("update shoot event: %w", err)
		}

		var jobID int64
		err := tx.NewSelect().
			Model((*models.OrderJobElement)(nil)).
			Column("order_job_id").
			Where("id = ?", *event.OrderJobElementID).
			Scan(ctx, &jobID)
		if err != nil {
			return fmt.Errorf("load job element %d: %w", *event.OrderJobElementID, err)
		}

		productionDate := event.From
		_, err = tx.NewUpdate().
			Model((*models.OrderJob)(nil)).
			Set("production_date = ?", productionDate).
			Where("id = ?", jobID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update job %d production date: %w", jobID, err)
		}

		var related []*models.Event
		err = tx.NewSelect().
			Model(&related).
			Where("e.order_job_element_id = ?", *event.OrderJobElementID).
			Where("e.event_type_id IN (?)", bun.In(models.ShootRelatedEventTypeIDs())).
			Where("e.id <> ?", event.ID).
			Order("e.id ASC").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("load shoot related events: %w", err)
		}

		for _, rel := range related {
			rel.MoveTo(event.From)
			if err := updateEvent(ctx, tx, rel); err != nil {
				return fmt.Errorf("move related event %d: %w", rel.ID, err)
			}
		}
		moved = related
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// SoftDeleteEvent → stamp deleted_at
func (d *DB) SoftDeleteEvent(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res, id)
}

// ForceDeleteEvent → remove the row, including soft deleted ones
func (d *DB) ForceDeleteEvent(ctx context.Context, id int64) error {
	res, err := d.Bun.NewDelete().
		Model((*models.Event)(nil)).
		Where("id = ?", id).
		WhereAllWithDeleted().
		ForceDelete().
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res, id)
}

func (d *DB) UpdateEventStatus(ctx context.Context, id int64, status models.EventStatusID) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("event_status_id = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res, id)
}

func (d *DB) ApproveEvent(ctx context.Context, id int64) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("is_approved = ?", true).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectAffected(res, id)
}

// UnassignJobEvents clears the assignee of every event on any element of the job.
func (d *DB) UnassignJobEvents(ctx context.Context, jobID int64) (int64, error) {
	elements := d.Bun.NewSelect().
		Model((*models.OrderJobElement)(nil)).
		Column("id").
		Where("order_job_id = ?", jobID)

	res, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("user_id = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("order_job_element_id IN (?)", elements).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------- SEARCH ----------------

// SuggestEventNames → distinct trimmed names containing text
func (d *DB) SuggestEventNames(ctx context.Context, text string, limit int) ([]string, error) {
	var names []string
	err := d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		ColumnExpr("DISTINCT e.name").
		Where("LOWER(e.name) LIKE ?", containsPattern(text)).
		OrderExpr("e.name ASC").
		Limit(limit).
		Scan(ctx, &names)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func (d *DB) SearchEventsByName(ctx context.Context, keyword string) ([]*models.Event, error) {
	var events []*models.Event
	err := eventQuery(d.Bun.NewSelect(), &events).
		Where("LOWER(e.name) LIKE ?", containsPattern(keyword)).
		Order("e.name ASC").
		Scan(ctx)
	return events, err
}

func (d *DB) SearchEventsByOrderID(ctx context.Context, orderID int64) ([]*models.Event, error) {
	var events []*models.Event
	err := eventQuery(d.Bun.NewSelect(), &events).
		Where("order_job_element__order_job__order.id = ?", orderID).
		Order("e.name ASC").
		Scan(ctx)
	return events, err
}

// ---------------- CALENDAR ----------------

// GetEventsForCalendar → published events matching the calendar filter. Empty id lists match nothing.
func (d *DB) GetEventsForCalendar(ctx context.Context, filter models.CalendarFilter) ([]*models.Event, error) {
	var events []*models.Event
	q := eventQuery(d.Bun.NewSelect(), &events).
		Where("e.event_status_id NOT IN (?)", bun.In(unpublishedStatuses()))

	if filter.AccountManagerID > 0 {
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("e.created_by = ?", filter.AccountManagerID).
				WhereOr("order_job_element__order_job__order.account_manager_id = ?", filter.AccountManagerID)
		})
	}
	if !filter.Start.IsZero() {
		q = q.Where("e.ends_at >= ?", filter.Start.UTC())
	}
	if !filter.End.IsZero() {
		q = q.Where("e.starts_at < ?", filter.End.UTC())
	}

	q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		if len(filter.StaffIDs) == 0 && len(filter.NotAssignedStateIDs) == 0 {
			return q.Where("1 = 0")
		}
		if len(filter.StaffIDs) > 0 {
			q = q.WhereOr("e.user_id IN (?)", bun.In(filter.StaffIDs))
		}
		if len(filter.NotAssignedStateIDs) > 0 {
			q = q.WhereOr("(e.user_id IS NULL OR e.user_id = 0) AND e.state_id IN (?)", bun.In(filter.NotAssignedStateIDs))
		}
		return q
	})

	if len(filter.EventTypeIDs) == 0 {
		q = q.Where("1 = 0")
	} else {
		q = q.Where("e.event_type_id IN (?)", bun.In(filter.EventTypeIDs))
	}

	err := q.Order("e.starts_at ASC").Scan(ctx)
	return events, err
}

// GetEventsByStatuses → events in any of the given statuses
func (d *DB) GetEventsByStatuses(ctx context.Context, statuses ...models.EventStatusID) ([]*models.Event, error) {
	var events []*models.Event
	if len(statuses) == 0 {
		return events, nil
	}
	err := eventQuery(d.Bun.NewSelect(), &events).
		Where("e.event_status_id IN (?)", bun.In(statuses)).
		Order("e.starts_at ASC").
		Scan(ctx)
	return events, err
}

// GetEventsNeedToBeVerified → published, unverified video events that ended inside (since, until]
// on jobs whose state is handled by stateID.
func (d *DB) GetEventsNeedToBeVerified(ctx context.Context, stateID int64, since, until time.Time, excludeProductID int64) ([]*models.Event, error) {
	var events []*models.Event
	q := eventQuery(d.Bun.NewSelect(), &events).
		Where("e.event_status_id NOT IN (?)", bun.In(unpublishedStatuses())).
		Where("e.is_verified = ?", false).
		Where("e.ends_at <= ?", until.UTC()).
		Where("e.ends_at > ?", since.UTC()).
		Where("order_job_element__order_job__state.state_in_charge = ?", stateID).
		Where("order_job_element__order_job__product.is_video_product = ?", true)
	if excludeProductID > 0 {
		q = q.Where("order_job_element__order_job.product_id <> ?", excludeProductID)
	}
	err := q.Order("e.starts_at DESC").Scan(ctx)
	return events, err
}

// GetUnapprovedRecordingEvents → recording type events on jobs that belong to an order
func (d *DB) GetUnapprovedRecordingEvents(ctx context.Context) ([]*models.Event, error) {
	var events []*models.Event
	err := eventQuery(d.Bun.NewSelect(), &events).
		Where("e.is_approved = ?", false).
		Where("event_type.is_recording = ?", true).
		Where("order_job_element__order_job.order_id IS NOT NULL").
		Order("e.starts_at ASC").
		Scan(ctx)
	return events, err
}

// GetStateIDsInCharge → ids of the states whose state_in_charge is stateID
func (d *DB) GetStateIDsInCharge(ctx context.Context, stateID int64) ([]int64, error) {
	var ids []int64
	err := d.Bun.NewSelect().
		Model((*models.State)(nil)).
		Column("id").
		Where("state_in_charge = ?", stateID).
		Order("id ASC").
		Scan(ctx, &ids)
	return ids, err
}

// ---------------- USER EVENTS ----------------

// GetUserOverdueEvents → published, uncompleted events of the user that ended by until
func (d *DB) GetUserOverdueEvents(ctx context.Context, userID int64, until time.Time) ([]*models.Event, error) {
	var events []*models.Event
	err := userEventsQuery(d.Bun.NewSelect(), &events, userID).
		Where("e.is_completed = ?", false).
		Where("e.ends_at <= ?", until.UTC()).
		Order("e.starts_at ASC").
		Scan(ctx)
	return events, err
}

// GetUserEventsStartingBetween → published events of the user starting in [from, to]
func (d *DB) GetUserEventsStartingBetween(ctx context.Context, userID int64, from, to time.Time) ([]*models.Event, error) {
	var events []*models.Event
	err := userEventsQuery(d.Bun.NewSelect(), &events, userID).
		Where("e.starts_at >= ?", from.UTC()).
		Where("e.starts_at <= ?", to.UTC()).
		Order("e.starts_at ASC").
		Scan(ctx)
	return events, err
}

func userEventsQuery(q *bun.SelectQuery, model interface{}, userID int64) *bun.SelectQuery {
	return eventQuery(q, model).
		Where("e.event_status_id NOT IN (?)", bun.In(unpublishedStatuses())).
		Where("e.user_id = ?", userID)
}

// ---------------- NOTIFICATIONS ----------------

// GetScheduledJobEventsStartingBetween → scheduled job events of the given types starting in [from, to],
// with the order's jobs loaded for contact emails.
func (d *DB) GetScheduledJobEventsStartingBetween(ctx context.Context, typeIDs []int64, from, to time.Time) ([]*models.Event, error) {
	var events []*models.Event
	q := eventQuery(d.Bun.NewSelect(), &events).
		Relation("OrderJobElement.OrderJob.Order.Jobs").
		Where("e.order_job_element_id IS NOT NULL").
		Where("e.event_status_id = ?", models.EventStatusScheduled).
		Where("e.starts_at >= ?", from.UTC()).
		Where("e.starts_at <= ?", to.UTC())
	if len(typeIDs) > 0 {
		q = q.Where("e.event_type_id IN (?)", bun.In(typeIDs))
	}
	err := q.Order("e.starts_at ASC").Scan(ctx)
	return events, err
}

// GetJobCrewEvents → assigned events of the job for the given types, oldest first
func (d *DB) GetJobCrewEvents(ctx context.Context, jobID int64, typeIDs []int64) ([]*models.Event, error) {
	var events []*models.Event
	if len(typeIDs) == 0 {
		return events, nil
	}
	err := d.Bun.NewSelect().
		Model(&events).
		Relation("User").
		Relation("OrderJobElement").
		Where("order_job_element.order_job_id = ?", jobID).
		Where("e.event_type_id IN (?)", bun.In(typeIDs)).
		Where("e.user_id IS NOT NULL").
		Order("e.id ASC").
		Scan(ctx)
	return events, err
}

// GetUsersByRoleAndStates → active users with roleID living in one of stateIDs
func (d *DB) GetUsersByRoleAndStates(ctx context.Context, roleID int64, stateIDs []int64) ([]*models.User, error) {
	var users []*models.User
	if len(stateIDs) == 0 {
		return users, nil
	}
	err := d.Bun.NewSelect().
		Model(&users).
		Where("u.role_id = ?", roleID).
		Where("u.state_id IN (?)", bun.In(stateIDs)).
		Where("u.is_active = ?", true).
		Order("u.id ASC").
		Scan(ctx)
	return users, err
}

// ---------------- LOOKUPS ----------------

// GetCalendarUsers → active users with their role, for the calendar staff filter
func (d *DB) GetCalendarUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Relation("Role").
		Where("u.is_active = ?", true).
		Order("u.first_name ASC", "u.last_name ASC").
		Scan(ctx)
	return users, err
}

func (d *DB) GetAccountManagers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Where("u.role_id = ?", models.RoleAccountManager).
		Where("u.is_active = ?", true).
		Order("u.first_name ASC", "u.last_name ASC").
		Scan(ctx)
	return users, err
}

func (d *DB) GetEventTypes(ctx context.Context) ([]*models.EventType, error) {
	var types []*models.EventType
	err := d.Bun.NewSelect().Model(&types).Order("et.id ASC").Scan(ctx)
	return types, err
}

func (d *DB) GetStates(ctx context.Context) ([]*models.State, error) {
	var states []*models.State
	err := d.Bun.NewSelect().Model(&states).Order("st.id ASC").Scan(ctx)
	return states, err
}

// ---------------- HELPERS ----------------

func unpublishedStatuses() []models.EventStatusID {
	return []models.EventStatusID{models.EventStatusUnscheduled, models.EventStatusOnHold}
}

func containsPattern(text string) string {
	return "%" + strings.ToLower(strings.TrimSpace(text)) + "%"
}

func expectAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", models.ErrEventNotFound, id)
	}
	return nil
}
