package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(month, day int) time.Time {
	return time.Date(2026, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func intp(v int) *int { return &v }

func TestBuildNullScoresBecomeZero(t *testing.T) {
	rows := []Row{
		{TeamID: 1, TeamName: "Platform", UserID: 5, UserName: "Aoki", ReportedAt: date(1, 1), StressScore: intp(10), MotivationScore: intp(20)},
		{TeamID: 1, TeamName: "Platform", UserID: 5, UserName: "Aoki", ReportedAt: date(1, 2), StressScore: nil, MotivationScore: intp(30)},
	}

	teams := Build(rows)
	require.Len(t, teams, 1)
	require.Len(t, teams[0].Users, 1)

	user := teams[0].Users[0]
	assert.Equal(t, uint(5), user.ID)
	assert.Equal(t, []string{"01/01", "01/02"}, user.Entries.Labels)
	assert.Equal(t, []int{10, 0}, user.Entries.StressValues)
	assert.Equal(t, []int{20, 30}, user.Entries.MotivationValues)
}

func TestBuildGroupsByTeamAndUser(t *testing.T) {
	rows := []Row{
		{TeamID: 1, TeamName: "Platform", UserID: 5, UserName: "Aoki", ReportedAt: date(3, 1), StressScore: intp(1), MotivationScore: intp(2)},
		{TeamID: 1, TeamName: "Platform", UserID: 7, UserName: "Sato", ReportedAt: date(3, 1), StressScore: intp(3), MotivationScore: intp(4)},
		{TeamID: 2, TeamName: "Support", UserID: 5, UserName: "Aoki", ReportedAt: date(3, 2), StressScore: intp(5), MotivationScore: intp(6)},
	}

	teams := Build(rows)
	require.Len(t, teams, 2)

	assert.Equal(t, uint(1), teams[0].ID)
	assert.Equal(t, "Platform", teams[0].Name)
	require.Len(t, teams[0].Users, 2)
	assert.Equal(t, uint(5), teams[0].Users[0].ID, "users keep first-appearance order")
	assert.Equal(t, uint(7), teams[0].Users[1].ID)

	assert.Equal(t, uint(2), teams[1].ID)
	require.Len(t, teams[1].Users, 1)
	assert.Equal(t, []int{5}, teams[1].Users[0].Entries.StressValues)
}

func TestBuildSortsTeamsByID(t *testing.T) {
	rows := []Row{
		{TeamID: 9, TeamName: "Z", UserID: 1, UserName: "a", ReportedAt: date(1, 1)},
		{TeamID: 3, TeamName: "M", UserID: 1, UserName: "a", ReportedAt: date(1, 1)},
		{TeamID: 7, TeamName: "Q", UserID: 1, UserName: "a", ReportedAt: date(1, 1)},
	}

	teams := Build(rows)
	require.Len(t, teams, 3)
	assert.Equal(t, uint(3), teams[0].ID)
	assert.Equal(t, uint(7), teams[1].ID)
	assert.Equal(t, uint(9), teams[2].ID)
}

func TestBuildOmitsTeamsWithoutEntries(t *testing.T) {
	teams := Build(nil)
	assert.Empty(t, teams, "no placeholder teams for empty input")
}

func TestBuildDeterministic(t *testing.T) {
	rows := []Row{
		{TeamID: 2, TeamName: "B", UserID: 3, UserName: "c", ReportedAt: date(2, 1), StressScore: intp(50), MotivationScore: intp(60)},
		{TeamID: 2, TeamName: "B", UserID: 4, UserName: "d", ReportedAt: date(2, 2), StressScore: intp(51), MotivationScore: intp(61)},
		{TeamID: 1, TeamName: "A", UserID: 3, UserName: "c", ReportedAt: date(2, 1), StressScore: intp(52), MotivationScore: intp(62)},
		{TeamID: 1, TeamName: "A", UserID: 5, UserName: "e", ReportedAt: date(2, 3), StressScore: nil, MotivationScore: nil},
		{TeamID: 1, TeamName: "A", UserID: 5, UserName: "e", ReportedAt: date(2, 4), StressScore: intp(53), MotivationScore: intp(63)},
		{TeamID: 2, TeamName: "B", UserID: 3, UserName: "c", ReportedAt: date(2, 5), StressScore: intp(54), MotivationScore: intp(64)},
	}

	first := Build(rows)
	second := Build(rows)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("aggregation is not deterministic across runs")
	}
}

func TestBuildMultipleDatesStayAligned(t *testing.T) {
	rows := []Row{
		{TeamID: 1, TeamName: "A", UserID: 1, UserName: "a", ReportedAt: date(11, 30), StressScore: intp(1), MotivationScore: nil},
		{TeamID: 1, TeamName: "A", UserID: 1, UserName: "a", ReportedAt: date(12, 1), StressScore: nil, MotivationScore: intp(2)},
		{TeamID: 1, TeamName: "A", UserID: 1, UserName: "a", ReportedAt: date(12, 2), StressScore: intp(3), MotivationScore: intp(4)},
	}

	teams := Build(rows)
	require.Len(t, teams, 1)
	entries := teams[0].Users[0].Entries

	assert.Equal(t, []string{"11/30", "12/01", "12/02"}, entries.Labels)
	assert.Len(t, entries.StressValues, len(entries.Labels))
	assert.Len(t, entries.MotivationValues, len(entries.Labels))
	assert.Equal(t, []int{1, 0, 3}, entries.StressValues)
	assert.Equal(t, []int{0, 2, 4}, entries.MotivationValues)
}
