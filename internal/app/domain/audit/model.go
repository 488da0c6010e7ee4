package audit

import "time"

// Entry is one recorded mutating API request.
type Entry struct {
	ID        int64     `db:"id" json:"id"`
	Time      time.Time `db:"created_at" json:"time"`
	UserID    *int64    `db:"user_id" json:"user_id,omitempty"`
	Role      string    `db:"role" json:"role,omitempty"`
	Method    string    `db:"method" json:"method"`
	Path      string    `db:"path" json:"path"`
	Status    int       `db:"status" json:"status"`
	RequestID string    `db:"request_id" json:"request_id,omitempty"`
	IP        string    `db:"ip" json:"ip,omitempty"`
	UserAgent string    `db:"user_agent" json:"user_agent,omitempty"`
}
