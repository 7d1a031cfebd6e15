package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskctl/internal/apperr"
	"taskctl/internal/service"
)

func TestDecodeTask_IdentifierAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"task_id wins", `{"task_id":"a","task_uuid":"b","id":"c","title":"x"}`, "a"},
		{"task_uuid", `{"task_uuid":"b","id":"c","title":"x"}`, "b"},
		{"id", `{"id":"c","title":"x"}`, "c"},
		{"numeric id", `{"id":42,"title":"x"}`, "42"},
		{"empty alias skipped", `{"task_id":"","task_uuid":"b","title":"x"}`, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := DecodeTask(json.RawMessage(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, task.ID)
		})
	}
}

func TestDecodeTask_MissingID(t *testing.T) {
	_, err := DecodeTask(json.RawMessage(`{"title":"orphan"}`))
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestDecodeTask_Fields(t *testing.T) {
	raw := `{
		"task_uuid": "t-1",
		"title": "Write report",
		"description": null,
		"status": "In Progress",
		"priority": 1,
		"due_date": "2024-05-01T00:00:00",
		"tags": ["work"],
		"assigned_to": "u-9",
		"created_date": "2024-04-01T10:30:00.123456",
		"completed_date": null
	}`
	task, err := DecodeTask(json.RawMessage(raw))
	require.NoError(t, err)

	assert.Equal(t, "Write report", task.Title)
	assert.Empty(t, task.Description)
	assert.Equal(t, service.PriorityHigh, task.Priority)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, "2024-05-01", task.DueDate.Format(service.DateLayout))
	assert.Equal(t, []string{"work"}, task.Tags)
	assert.Equal(t, "u-9", task.AssignedTo)
	assert.NotNil(t, task.CreatedDate)
	assert.Nil(t, task.CompletedDate)
	assert.False(t, task.Done())
}

func TestDecodeUser_Aliases(t *testing.T) {
	u, err := DecodeUser(json.RawMessage(`{"user_uuid":"u-1","username":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	u, err = DecodeUser(json.RawMessage(`{"user_id":"u-2","user_uuid":"u-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "u-2", u.ID)

	_, err = DecodeUser(json.RawMessage(`{"username":"ghost"}`))
	assert.True(t, apperr.IsValidation(err))
}

func TestDecodeUsers_RejectsEntryWithoutID(t *testing.T) {
	_, err := DecodeUsers(json.RawMessage(`[{"id":"u-1"},{"username":"ghost"}]`))
	assert.True(t, apperr.IsValidation(err))
}

func TestDecode_MalformedBodyIsTyped(t *testing.T) {
	_, err := DecodeTask(json.RawMessage(`{"title":`))
	assert.True(t, apperr.IsRequest(err, apperr.MalformedBody))
	_, err = DecodeTasks(json.RawMessage(`{"items":[]}`))
	assert.True(t, apperr.IsRequest(err, apperr.MalformedBody))
	_, err = DecodeUser(json.RawMessage(`"alice"`))
	assert.True(t, apperr.IsRequest(err, apperr.MalformedBody))
	_, err = DecodeUsers(json.RawMessage(`null,`))
	assert.True(t, apperr.IsRequest(err, apperr.MalformedBody))
	_, err = DecodeStatuses(json.RawMessage(`42`))
	assert.True(t, apperr.IsRequest(err, apperr.MalformedBody))
}

func TestDecodeStatuses_PreservesOrder(t *testing.T) {
	got, err := DecodeStatuses(json.RawMessage(`{"TO_DO":"To Do","IN_PROGRESS":"In Progress","DONE":"Done"}`))
	require.NoError(t, err)
	assert.Equal(t, []service.TaskStatus{
		{Key: "TO_DO", Label: "To Do"},
		{Key: "IN_PROGRESS", Label: "In Progress"},
		{Key: "DONE", Label: "Done"},
	}, got)

	got, err = DecodeStatuses(json.RawMessage(`["To Do","Done"]`))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestEncodeTaskInput_Defaults(t *testing.T) {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	data, err := json.Marshal(EncodeTaskInput(service.TaskInput{Title: "  Buy milk ", DueDate: &due}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "Buy milk",
		"description": null,
		"status": "To Do",
		"priority": 2,
		"due_date": "2024-05-01T00:00:00",
		"tags": [],
		"assigned_to": null
	}`, string(data))
}

func TestEncodeTaskPatch_OnlyChangedFields(t *testing.T) {
	status := service.StatusDone
	data, err := json.Marshal(EncodeTaskPatch(service.TaskPatch{Status: &status}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Done"}`, string(data))
}

func TestAssignBody_NullUnassigns(t *testing.T) {
	data, err := json.Marshal(AssignBody{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_uuid":null}`, string(data))
}

func TestFilterQuery(t *testing.T) {
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	q := FilterQuery(service.TaskFilter{
		Status:       "To Do",
		DueFrom:      &from,
		AssignedToMe: true,
		Page:         service.Page{Limit: 100},
	})
	assert.Equal(t, "assigned_to_me=true&due_date_from=2024-01-02&limit=100&status=To+Do", q.Encode())

	assert.Empty(t, FilterQuery(service.TaskFilter{}).Encode())
	assert.Equal(t, "limit=100", PageQuery(service.Page{Limit: 100}).Encode())
}
