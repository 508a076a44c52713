package models

import "time"

// ClassLevelCA is one recurring continuous-assessment slot (e.g. "CA1")
// defined per class level. Admin-managed and long-lived; exam creation reads
// the enabled rows to derive exam components.
type ClassLevelCA struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"tenant_id"`
	ClassLevel string    `db:"class_level" json:"class_level"`
	Caption    string    `db:"caption" json:"caption"`
	MaxScore   float64   `db:"max_score" json:"max_score"`
	Enabled    bool      `db:"enabled" json:"enabled"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CASetupResult reports the resulting row state of one processed setup entry.
type CASetupResult struct {
	ClassLevelCA
	Created bool `json:"created"`
}
