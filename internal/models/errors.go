package models

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrEventNotFound also matches sql.ErrNoRows under errors.Is.
	ErrEventNotFound = fmt.Errorf("event not found: %w", sql.ErrNoRows)
	ErrInvalidWindow = errors.New("event end must not be before its start")
	ErrInvalidStatus = errors.New("unknown event status")
)
