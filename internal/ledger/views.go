package ledger

import (
	"context"
	"errors"

	"solarforge/internal/domain"
)

// ForgeUser is a contributor of an issue's solar forge.
type ForgeUser struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
	Stars float64  `json:"stars"`
}

// SolarForgeByIssueResult is the per-issue aggregate. Error is set instead of
// failing the read when the forge is missing or a collaborator is down.
type SolarForgeByIssueResult struct {
	SolarForgeID string      `json:"solar_forge_id,omitempty"`
	IssueID      string      `json:"issue_id"`
	Users        []ForgeUser `json:"users"`
	Sunshines    float64     `json:"sunshines"`
	Stars        float64     `json:"stars"`
	Error        string      `json:"error,omitempty"`
}

// SolarForgeByVersionResult is the read-time fold over a version's completed patches.
type SolarForgeByVersionResult struct {
	VersionID      string  `json:"version_id"`
	TotalIssues    int     `json:"total_issues"`
	TotalSunshines float64 `json:"total_sunshines"`
	TotalStars     float64 `json:"total_stars"`
	Error          string  `json:"error,omitempty"`
}

func (q *Query) solarForgeByIssue(ctx context.Context, issueID string) SolarForgeByIssueResult {
	res := SolarForgeByIssueResult{IssueID: issueID, Users: []ForgeUser{}}
	sf, err := q.store.SolarForgeByIssue(ctx, issueID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			res.Error = "solar forge not found for issue"
			return res
		}
		q.logger.Error().Err(err).Str("issue_id", issueID).Msg("query: load solar forge failed")
		res.Error = "solar forge unavailable"
		return res
	}
	res.SolarForgeID = sf.ID
	res.Sunshines = sf.Sunshines
	res.Stars = Stars(sf.Sunshines)

	stars, err := q.store.UserStars(ctx, sf.Users)
	if err != nil {
		q.logger.Error().Err(err).Str("issue_id", issueID).Msg("query: load contributor stars failed")
		res.Error = "contributor balances unavailable"
		stars = map[string]float64{}
	}
	profiles := map[string]domain.UserProfile{}
	if q.users != nil {
		profiles, err = q.users.Profiles(ctx, sf.Users)
		if err != nil {
			q.logger.Error().Err(err).Str("issue_id", issueID).Msg("query: resolve contributors failed")
			res.Error = "user directory unavailable"
			profiles = map[string]domain.UserProfile{}
		}
	}
	for _, id := range sf.Users {
		roles := profiles[id].Roles
		if roles == nil {
			roles = []string{}
		}
		res.Users = append(res.Users, ForgeUser{ID: id, Roles: roles, Stars: stars[id]})
	}
	return res
}

func (q *Query) solarForgeByVersion(ctx context.Context, versionID string) SolarForgeByVersionResult {
	res := SolarForgeByVersionResult{VersionID: versionID}
	snap, err := q.store.VersionSnapshot(ctx, versionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			res.Error = "version not found"
			return res
		}
		q.logger.Error().Err(err).Str("version_id", versionID).Msg("query: version snapshot failed")
		res.Error = "version totals unavailable"
		return res
	}
	res.TotalIssues = snap.TotalIssues
	res.TotalSunshines = snap.TotalSunshines
	res.TotalStars = Stars(snap.TotalSunshines)
	return res
}
