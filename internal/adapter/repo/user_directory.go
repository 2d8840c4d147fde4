package repo

import (
	"context"
	"fmt"

	"solarforge/internal/domain"
	"solarforge/internal/infra"
	"solarforge/internal/sqlinline"
)

// UserDirectoryPG reads contributor roles from the user_directory table
// maintained by the auth layer.
type UserDirectoryPG struct {
	sql infra.SQLExecutor
}

// NewUserDirectory constructs the directory reader.
func NewUserDirectory(exec infra.SQLExecutor) *UserDirectoryPG {
	return &UserDirectoryPG{sql: exec}
}

// Profiles resolves the given ids. Unknown ids are absent from the result.
func (r *UserDirectoryPG) Profiles(ctx context.Context, userIDs []string) (map[string]domain.UserProfile, error) {
	out := make(map[string]domain.UserProfile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectUserProfiles, userIDs)
	if err != nil {
		return nil, fmt.Errorf("select user profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.UserProfile
		if err := rows.Scan(&p.ID, &p.Roles); err != nil {
			return nil, fmt.Errorf("scan user profile: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select user profiles: %w", err)
	}
	return out, nil
}
