package models

import "time"

type LogEvent string

const (
	LogEventLogin     LogEvent = "LOGIN"
	LogEventSecurity  LogEvent = "SECURITY"
	LogEventRegister  LogEvent = "REGISTER"
	LogEventLogout    LogEvent = "LOGOUT"
	LogEventProvision LogEvent = "PROVISION"
)

// SystemLog is one audit trail row.
type SystemLog struct {
	ID          int64     `json:"id"`
	UserID      *string   `json:"user_id"`
	UserName    string    `json:"user_name"`
	Event       LogEvent  `json:"event"`
	Description string    `json:"description"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}
