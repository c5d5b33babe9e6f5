package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/project"
	"github.com/trezcool/kazi/core/stats"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
)

// Test_api_projectTaskFlow drives a whole project lifecycle through the API:
// a professor sets up a project, enrolls a student, hands out a task; the
// student completes it; both sides check their notifications and statistics.
func Test_api_projectTaskFlow(t *testing.T) {
	env := newEnv(t)

	prof := env.createUser(t, "profzero", user.RoleProfessor)
	stud := env.createUser(t, "studone", user.RoleStudent)
	outsider := env.createUser(t, "outsider", user.RoleStudent)

	profToken := env.login(t, prof)
	studToken := env.login(t, stud)
	outsiderToken := env.login(t, outsider)

	// professor creates a project
	var prj project.Project
	{
		body := marshalObj(t, project.NewProject{Title: "Algebra I", Description: "Intro course"})
		rec := env.do(newAuthRequest(http.MethodPost, "/v1/projects", profToken, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &prj)
		assert.Equal(t, prof.ID, prj.CreatorID)
		assert.Equal(t, []string{prof.ID}, prj.MemberIDs)
	}

	// ... and enrolls the student
	{
		body := marshalObj(t, map[string]string{"user_id": stud.ID})
		rec := env.do(newAuthRequest(http.MethodPost, "/v1/projects/"+prj.ID+"/members", profToken, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &prj)
		assert.Contains(t, prj.MemberIDs, stud.ID)
	}

	// the student sees the project; the outsider does not even learn it exists
	{
		rec := env.do(newAuthRequest(http.MethodGet, "/v1/projects", studToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var projects []project.Project
		decode(t, rec, &projects)
		require.Len(t, projects, 1)

		rec = env.do(newAuthRequest(http.MethodGet, "/v1/projects/"+prj.ID, outsiderToken))
		require.Equal(t, http.StatusNotFound, rec.Code)
		var resp httpErr
		decode(t, rec, &resp)
		assert.Equal(t, "project not found", resp.Error)
	}

	// professor hands out a task
	var tsk task.Task
	{
		body := marshalObj(t, task.NewTask{
			Title:        "Homework 1",
			ProjectID:    prj.ID,
			AssignedToID: stud.ID,
			DueDate:      time.Now().UTC().Add(72 * time.Hour),
			Priority:     3,
		})
		rec := env.do(newAuthRequest(http.MethodPost, "/v1/tasks", profToken, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &tsk)
		assert.Equal(t, task.StatusTodo, tsk.Status)
		assert.Equal(t, stud.ID, tsk.AssignedToID)
	}

	// the "me" shorthand scopes the task listing to the caller
	{
		rec := env.do(newAuthRequest(http.MethodGet, "/v1/tasks?assigned_to=me", studToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var tasks []task.Task
		decode(t, rec, &tasks)
		require.Len(t, tasks, 1)
		assert.Equal(t, tsk.ID, tasks[0].ID)

		rec = env.do(newAuthRequest(http.MethodGet, "/v1/tasks?assigned_to=me", profToken))
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &tasks)
		assert.Empty(t, tasks)
	}

	// the student completes it; lowercase status is accepted
	{
		body := marshalObj(t, map[string]string{"status": "completed"})
		rec := env.do(newAuthRequest(http.MethodPatch, "/v1/tasks/"+tsk.ID+"/status", studToken, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &tsk)
		assert.Equal(t, task.StatusCompleted, tsk.Status)
		assert.NotNil(t, tsk.CompletionDate)
	}

	// the outsider cannot even see the task
	{
		rec := env.do(newAuthRequest(http.MethodGet, "/v1/tasks/"+tsk.ID, outsiderToken))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	// notifications: the student was invited and assigned; the professor got
	// the completion notice
	{
		rec := env.do(newAuthRequest(http.MethodGet, "/v1/notifications", studToken))
		require.Equal(t, http.StatusOK, rec.Code)
		var notifs []notification.Notification
		decode(t, rec, &notifs)
		require.Len(t, notifs, 2)
		types := []string{notifs[0].Type, notifs[1].Type}
		assert.Contains(t, types, notification.TypeProjectInvitation)
		assert.Contains(t, types, notification.TypeTaskAssigned)

		rec = env.do(newAuthRequest(http.MethodGet, "/v1/notifications", profToken))
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &notifs)
		require.Len(t, notifs, 1)
		assert.Equal(t, notification.TypeTaskCompleted, notifs[0].Type)

		// mark one read, then the unread listing shrinks
		rec = env.do(newAuthRequest(http.MethodPatch, "/v1/notifications/"+notifs[0].ID+"/read", profToken))
		require.Equal(t, http.StatusOK, rec.Code)
		rec = env.do(newAuthRequest(http.MethodGet, "/v1/notifications?unread=true", profToken))
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &notifs)
		assert.Empty(t, notifs)

		// read-all for the student
		rec = env.do(newAuthRequest(http.MethodPost, "/v1/notifications/read-all", studToken))
		require.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.do(newAuthRequest(http.MethodGet, "/v1/notifications?unread=true", studToken))
		require.Equal(t, http.StatusOK, rec.Code)
		decode(t, rec, &notifs)
		assert.Empty(t, notifs)
	}

	// statistics
	{
		// a student may not read someone else's
		rec := env.do(newAuthRequest(http.MethodGet, "/v1/statistics/users/"+prof.ID, studToken))
		require.Equal(t, http.StatusForbidden, rec.Code)

		// own statistics are fine
		rec = env.do(newAuthRequest(http.MethodGet, "/v1/statistics/users/"+stud.ID, studToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s stats.TaskStatistics
		decode(t, rec, &s)
		assert.Equal(t, stud.ID, s.UserID)

		// the summary is professors-only
		rec = env.do(newAuthRequest(http.MethodGet, "/v1/statistics/summary", studToken))
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/statistics/summary?period=%s", stats.PeriodYear), profToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var summary []stats.TaskStatistics
		decode(t, rec, &summary)
		require.Len(t, summary, 1)
		assert.Equal(t, prof.ID, summary[0].UserID)

		// unknown period preset
		rec = env.do(newAuthRequest(http.MethodGet, "/v1/statistics/summary?period=semester", profToken))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var fields map[string]string
		decode(t, rec, &fields)
		assert.Contains(t, fields["period"], "invalid period")
	}
}
