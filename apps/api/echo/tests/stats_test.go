package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core/stats"
	"github.com/trezcool/kazi/core/user"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// Test_statsApi_periodWindow pins the period presets to the injected server
// clock rather than the wall clock.
func Test_statsApi_periodWindow(t *testing.T) {
	now := time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)
	env := newEnvWithClock(t, fixedClock{now: now})

	prof := env.createUser(t, "profzero", user.RoleProfessor)
	token := env.login(t, prof)

	t.Run("default trimester", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/v1/statistics/users/"+prof.ID, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var s stats.TaskStatistics
		decode(t, rec, &s)
		assert.True(t, s.PeriodStart.Equal(time.Date(2021, time.April, 1, 0, 0, 0, 0, time.UTC)), s.PeriodStart)
		assert.True(t, s.PeriodEnd.Equal(now), s.PeriodEnd)
	})

	t.Run("year", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodGet, "/v1/statistics/users/"+prof.ID+"?period=year", token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var s stats.TaskStatistics
		decode(t, rec, &s)
		assert.True(t, s.PeriodStart.Equal(time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)), s.PeriodStart)
	})
}
