package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	FirstName     string    `bun:"first_name" json:"first_name"`
	LastName      string    `bun:"last_name" json:"last_name"`
	Email         string    `bun:"email,unique,notnull" json:"email"`
	CalendarColor string    `bun:"calendar_color" json:"calendar_color"`
	RoleID        int64     `bun:"role_id" json:"role_id"`
	StateID       *int64    `bun:"state_id" json:"state_id"`
	IsActive      bool      `bun:"is_active,notnull" json:"is_active"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	Role *Role `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
}

func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
