// Package aggregate reshapes flat entry rows into the nested
// team -> user -> timeseries structure consumed by the dashboard.
package aggregate

import (
	"sort"
	"time"
)

// Row is one entry as read from the store, already ordered by
// (team_id, user_id, reported_at) ascending.
type Row struct {
	TeamID          uint
	TeamName        string
	UserID          uint
	UserName        string
	ReportedAt      time.Time
	StressScore     *int
	MotivationScore *int
}

// Series holds a user's aligned timeseries. The three slices always
// have the same length; a missing score is recorded as 0, never omitted.
type Series struct {
	Labels           []string `json:"labels"`
	StressValues     []int    `json:"stress_values"`
	MotivationValues []int    `json:"motivation_values"`
}

// UserSummary is one user's series within a team.
type UserSummary struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Entries Series `json:"entries"`
}

// TeamSummary is the per-team dashboard payload.
type TeamSummary struct {
	ID    uint           `json:"id"`
	Name  string         `json:"name"`
	Users []*UserSummary `json:"users"`
}

type groupKey struct {
	teamID uint
	userID uint
}

// Build groups the ordered rows by (team, user) and appends one point
// per entry to each user's series. Teams with no rows never appear, and
// users keep their first-appearance order within a team. The result is
// sorted by team id ascending.
func Build(rows []Row) []*TeamSummary {
	teams := make(map[uint]*TeamSummary)
	users := make(map[groupKey]*UserSummary)

	for _, row := range rows {
		team, ok := teams[row.TeamID]
		if !ok {
			team = &TeamSummary{
				ID:    row.TeamID,
				Name:  row.TeamName,
				Users: []*UserSummary{},
			}
			teams[row.TeamID] = team
		}

		key := groupKey{teamID: row.TeamID, userID: row.UserID}
		user, ok := users[key]
		if !ok {
			user = &UserSummary{
				ID:   row.UserID,
				Name: row.UserName,
				Entries: Series{
					Labels:           []string{},
					StressValues:     []int{},
					MotivationValues: []int{},
				},
			}
			users[key] = user
			team.Users = append(team.Users, user)
		}

		user.Entries.Labels = append(user.Entries.Labels, row.ReportedAt.Format("01/02"))
		user.Entries.StressValues = append(user.Entries.StressValues, scoreOrZero(row.StressScore))
		user.Entries.MotivationValues = append(user.Entries.MotivationValues, scoreOrZero(row.MotivationScore))
	}

	result := make([]*TeamSummary, 0, len(teams))
	for _, team := range teams {
		result = append(result, team)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func scoreOrZero(score *int) int {
	if score == nil {
		return 0
	}
	return *score
}
