package domain

import "time"

// SolarForge accumulates completed donations attributed to one issue.
type SolarForge struct {
	ID          string
	IssueID     string
	Users       []string
	Sunshines   float64
	CreatedTime time.Time
	UpdatedAt   time.Time
}

// HasUser reports whether userID already contributed to the issue.
func (s SolarForge) HasUser(userID string) bool {
	for _, u := range s.Users {
		if u == userID {
			return true
		}
	}
	return false
}

// VersionSnapshot is the consistent read behind a per-version fold.
type VersionSnapshot struct {
	VersionID      string
	TotalIssues    int
	TotalSunshines float64
}

// UserProfile is what the external user directory knows about a contributor.
type UserProfile struct {
	ID    string
	Roles []string
}
