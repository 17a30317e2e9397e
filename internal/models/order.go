package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:ord"`

	ID               int64     `bun:"id,pk,autoincrement" json:"id"`
	Name             string    `bun:"name" json:"name"`
	OrderStatusID    int64     `bun:"order_status_id" json:"order_status_id"`
	AccountManagerID *int64    `bun:"account_manager_id" json:"account_manager_id"`
	TeamLeaderID     *int64    `bun:"team_leader_id" json:"team_leader_id"`
	OfficeID         *int64    `bun:"office_id" json:"office_id"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	AccountManager *User       `bun:"rel:belongs-to,join:account_manager_id=id" json:"account_manager,omitempty"`
	TeamLeader     *User       `bun:"rel:belongs-to,join:team_leader_id=id" json:"team_leader,omitempty"`
	Office         *Office     `bun:"rel:belongs-to,join:office_id=id" json:"office,omitempty"`
	Jobs           []*OrderJob `bun:"rel:has-many,join:id=order_id" json:"jobs,omitempty"`
}

func (o *Order) IsCancelled() bool {
	return o != nil && o.OrderStatusID == OrderStatusCancelled
}

// AllJobContactEmails returns the distinct contact addresses across the order's loaded jobs.
func (o *Order) AllJobContactEmails() []string {
	if o == nil {
		return nil
	}
	seen := make(map[string]bool)
	var emails []string
	for _, job := range o.Jobs {
		email := strings.TrimSpace(job.ContactEmail)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}
	return emails
}

type OrderJob struct {
	bun.BaseModel `bun:"table:order_jobs,alias:oj"`

	ID                   int64      `bun:"id,pk,autoincrement" json:"id"`
	OrderID              *int64     `bun:"order_id" json:"order_id"`
	ProductID            *int64     `bun:"product_id" json:"product_id"`
	StateID              *int64     `bun:"state_id" json:"state_id"`
	AlternateEditStateID *int64     `bun:"alternate_edit_state_id" json:"alternate_edit_state_id"`
	ProductionDate       *time.Time `bun:"production_date" json:"production_date"`
	ContactName          string     `bun:"contact_name" json:"contact_name"`
	ContactEmail         string     `bun:"contact_email" json:"contact_email"`

	Order    *Order             `bun:"rel:belongs-to,join:order_id=id" json:"order,omitempty"`
	Product  *Product           `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
	State    *State             `bun:"rel:belongs-to,join:state_id=id" json:"state,omitempty"`
	Video    *Video             `bun:"rel:has-one,join:id=order_job_id" json:"video,omitempty"`
	Elements []*OrderJobElement `bun:"rel:has-many,join:id=order_job_id" json:"elements,omitempty"`
}

func (j *OrderJob) HasVideo() bool {
	return j != nil && j.Video != nil && j.Video.ID != 0
}

type OrderJobElement struct {
	bun.BaseModel `bun:"table:order_job_elements,alias:oje"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	OrderJobID int64  `bun:"order_job_id,notnull" json:"order_job_id"`
	Name       string `bun:"name" json:"name"`

	OrderJob *OrderJob `bun:"rel:belongs-to,join:order_job_id=id" json:"order_job,omitempty"`
}

type Video struct {
	bun.BaseModel `bun:"table:videos,alias:v"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	OrderJobID int64  `bun:"order_job_id,notnull" json:"order_job_id"`
	Title      string `bun:"title" json:"title"`
}
