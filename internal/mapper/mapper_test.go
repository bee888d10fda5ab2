package mapper

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/apperror"
	"taskboard/internal/auth"
	"taskboard/internal/models"
)

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestUserViewNeverCarriesPassword(t *testing.T) {
	for _, role := range []models.Role{models.RoleAdmin, models.RoleManager, models.RoleDeveloper} {
		u := &models.User{ID: 4, Username: "al", PasswordHash: "$2a$10$secret", Role: role, Email: "al@example.com"}
		raw, err := json.Marshal(ToUserView(u))
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.ElementsMatch(t, []string{"id", "username", "role", "first_name", "last_name", "email"}, keys(out))
		assert.NotContains(t, string(raw), "secret")
		assert.NotContains(t, string(raw), "password")
	}
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestTaskRoundTrip(t *testing.T) {
	deadline := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	assignee := 3
	stored := &models.Task{
		ID: 1, Title: "Design", ProjectID: 7, AssigneeID: &assignee,
		Status: models.StatusInProgress, Deadline: &deadline,
	}

	raw, err := json.Marshal(ToTaskView(stored))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"deadline":"2026-12-24"`)

	in, err := DecodeTaskCreate(raw)
	require.NoError(t, err)
	back := in.Task()

	assert.Equal(t, stored.Status, back.Status)
	assert.Equal(t, stored.ProjectID, back.ProjectID)
	require.NotNil(t, back.AssigneeID)
	assert.Equal(t, assignee, *back.AssigneeID)
	require.NotNil(t, back.Deadline)
	assert.True(t, deadline.Equal(*back.Deadline))
}

func TestTaskRoundTripWithNulls(t *testing.T) {
	stored := &models.Task{ID: 2, Title: "Fix", ProjectID: 1, Status: models.StatusTodo}
	raw, err := json.Marshal(ToTaskView(stored))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"assignee":null`)
	assert.Contains(t, string(raw), `"deadline":null`)

	in, err := DecodeTaskCreate(raw)
	require.NoError(t, err)
	back := in.Task()
	assert.Nil(t, back.AssigneeID)
	assert.Nil(t, back.Deadline)
	assert.Equal(t, models.StatusTodo, back.Status)
}

func TestDecodeTaskCreateInvalidStatus(t *testing.T) {
	_, err := DecodeTaskCreate([]byte(`{"title":"Fix","project":1,"status":"INVALID"}`))
	fields := validationFields(t, err)
	assert.Contains(t, fields, "status")
	assert.Len(t, fields, 1)
}

func TestDecodeTaskCreateListsEveryInvalidField(t *testing.T) {
	_, err := DecodeTaskCreate([]byte(`{"title":"","project":"abc","status":"LATER","deadline":"31/12/2026","assignee":-1}`))
	fields := validationFields(t, err)
	assert.Equal(t, "this field is required", fields["title"])
	assert.Equal(t, "must be an integer", fields["project"])
	assert.Contains(t, fields["status"], "must be one of")
	assert.Equal(t, "must be a date in YYYY-MM-DD format", fields["deadline"])
	assert.Equal(t, "must be a positive id", fields["assignee"])
}

func TestDecodeTaskCreateDefaults(t *testing.T) {
	in, err := DecodeTaskCreate([]byte(`{"title":"  Ship  ","project":2}`))
	require.NoError(t, err)
	task := in.Task()
	assert.Equal(t, "Ship", task.Title)
	assert.Equal(t, models.Status(""), task.Status)
	assert.Nil(t, task.Deadline)
}

func TestDecodeRejectsNonObjectBody(t *testing.T) {
	_, err := DecodeTaskCreate([]byte(`[1,2]`))
	fields := validationFields(t, err)
	assert.Contains(t, fields, NonFieldErrors)
}

func TestDecodeTaskUpdate(t *testing.T) {
	current := &models.Task{ID: 1, Title: "Old", ProjectID: 5, Status: models.StatusTodo}
	assignee := 9
	current.AssigneeID = &assignee

	in, err := DecodeTaskUpdate([]byte(`{"status":"DONE","assignee":null,"project":5}`), current)
	require.NoError(t, err)
	in.Apply(current)
	assert.Equal(t, models.StatusDone, current.Status)
	assert.Nil(t, current.AssigneeID)
	assert.Equal(t, "Old", current.Title)

	in, err = DecodeTaskUpdate([]byte(`{"deadline":"2027-01-15"}`), current)
	require.NoError(t, err)
	in.Apply(current)
	require.NotNil(t, current.Deadline)
	assert.Equal(t, "2027-01-15", current.Deadline.Format(DateLayout))

	in, err = DecodeTaskUpdate([]byte(`{"title":"New"}`), current)
	require.NoError(t, err)
	in.Apply(current)
	assert.NotNil(t, current.Deadline, "absent deadline leaves it unchanged")
}

func TestDecodeTaskUpdateRejectsProjectChange(t *testing.T) {
	current := &models.Task{ID: 1, Title: "Old", ProjectID: 5}
	_, err := DecodeTaskUpdate([]byte(`{"project":6,"status":"NOPE","deadline":"tomorrow","title":""}`), current)
	fields := validationFields(t, err)
	assert.Contains(t, fields, "project")
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "deadline")
	assert.Contains(t, fields, "title")
}

func TestProjectViewExposesTeamAndTasks(t *testing.T) {
	desc := "q4"
	p := &models.Project{ID: 1, Title: "Launch", Description: &desc, Team: []int{2, 3}, TaskIDs: []int{10}}
	raw, err := json.Marshal(ToProjectView(p))
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.ElementsMatch(t, []string{"id", "title", "description", "team", "tasks", "created_at", "updated_at"}, keys(out))
	assert.Equal(t, []any{float64(2), float64(3)}, out["team"])

	empty, err := json.Marshal(ToProjectView(&models.Project{ID: 2, Title: "Empty"}))
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"team":[]`)
	assert.Contains(t, string(empty), `"description":null`)
}

func TestDecodeProjectUpdate(t *testing.T) {
	desc := "old"
	p := &models.Project{ID: 1, Title: "Launch", Description: &desc, Team: []int{1}}

	in, err := DecodeProjectUpdate([]byte(`{"description":null}`))
	require.NoError(t, err)
	assert.False(t, in.Apply(p))
	assert.Nil(t, p.Description)
	assert.Equal(t, "Launch", p.Title)

	in, err = DecodeProjectUpdate([]byte(`{"team":[4,4,5]}`))
	require.NoError(t, err)
	assert.True(t, in.Apply(p))
	assert.Equal(t, []int{4, 5}, p.Team)

	_, err = DecodeProjectUpdate([]byte(`{"title":"   ","team":[0]}`))
	fields := validationFields(t, err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "team")
}

func TestDecodeProjectCreateTitleLength(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	body, _ := json.Marshal(map[string]any{"title": string(long)})
	_, err := DecodeProjectCreate(body)
	fields := validationFields(t, err)
	assert.Equal(t, "ensure this field has no more than 255 characters", fields["title"])
}

func TestDecodeUserInputs(t *testing.T) {
	_, err := DecodeUserCreate([]byte(`{"username":"","password":"123","email":"nope","role":"OWNER"}`))
	fields := validationFields(t, err)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "role")

	in, err := DecodeUserCreate([]byte(`{"username":"al","password":"secret1"}`))
	require.NoError(t, err)
	assert.Equal(t, models.Role(""), in.User("hash").Role)

	upd, err := DecodeUserUpdate([]byte(`{"email":""}`))
	require.NoError(t, err)
	u := &models.User{Email: "old@example.com", PasswordHash: "h"}
	upd.Apply(u, "")
	assert.Equal(t, "", u.Email)
	assert.Equal(t, "h", u.PasswordHash)

	_, err = DecodeUserUpdate([]byte(`{"email":"broken"}`))
	assert.Contains(t, validationFields(t, err), "email")

	_, err = DecodeRole([]byte(`{"role":"ROOT"}`))
	assert.Contains(t, validationFields(t, err), "role")

	role, err := DecodeRole([]byte(`{"role":"MANAGER"}`))
	require.NoError(t, err)
	assert.Equal(t, models.RoleManager, role)
}

func TestToTokenView(t *testing.T) {
	pair := &auth.TokenPair{Access: "a", Refresh: "r", Claims: auth.Claims{UserID: 2, Username: "al", Role: models.RoleDeveloper}}
	raw, err := json.Marshal(ToTokenView(pair))
	require.NoError(t, err)
	assert.JSONEq(t, `{"access":"a","refresh":"r","id":2,"username":"al","role":"DEVELOPER"}`, string(raw))
}

func TestDecodeRejectsIDsBeyondSerialRange(t *testing.T) {
	_, err := DecodeTaskCreate([]byte(`{"title":"x","project":9999999999,"assignee":9999999999}`))
	fields := validationFields(t, err)
	assert.Equal(t, "must be a valid id", fields["project"])
	assert.Equal(t, "must be a valid id", fields["assignee"])

	_, err = DecodeTaskCreate([]byte(`{"title":"x","project":2147483647}`))
	assert.NoError(t, err)

	current := &models.Task{ID: 1, Title: "x", ProjectID: 1}
	_, err = DecodeTaskUpdate([]byte(`{"assignee":3000000000}`), current)
	assert.Equal(t, "must be a valid id", validationFields(t, err)["assignee"])

	_, err = DecodeProjectCreate([]byte(`{"title":"P","team":[1,5000000000]}`))
	assert.Contains(t, validationFields(t, err), "team")

	_, err = DecodeProjectUpdate([]byte(`{"team":[2147483648]}`))
	assert.Contains(t, validationFields(t, err), "team")

	_, err = DecodeTeamMember([]byte(`{"user_id":2147483648}`))
	assert.Contains(t, validationFields(t, err), "user_id")
}
