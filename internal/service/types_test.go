package service_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streaktodo/internal/service"
	"streaktodo/internal/streak"
)

func TestTask_JSONShape(t *testing.T) {
	task := service.Task{
		ID:   "abc",
		Text: "Read",
		State: streak.State{
			Done:            true,
			LastCompletedAt: "2024-01-02",
			CurrentStreak:   2,
			BestStreak:      4,
		},
	}
	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","text":"Read","done":true,"lastCompletedAt":"2024-01-02","currentStreak":2,"bestStreak":4}`, string(data))

	data, err = json.Marshal(service.Task{ID: "x", Text: "y"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "lastCompletedAt")
}

func TestTask_DecodeNullDateAndTransientField(t *testing.T) {
	var task service.Task
	err := json.Unmarshal([]byte(`{"id":"a","text":"b","done":false,"lastCompletedAt":null,"currentStreak":0,"bestStreak":0,"_justGotBest":true}`), &task)
	require.NoError(t, err)
	assert.Equal(t, "", task.LastCompletedAt)

	out, err := json.Marshal(task)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "_justGotBest")
}

func TestPatch_Apply(t *testing.T) {
	text := "new"
	done := true
	cur := 3

	got := service.Patch{Text: &text, Done: &done, CurrentStreak: &cur}.Apply(service.Task{ID: "a", Text: "old", State: streak.State{BestStreak: 5}})
	assert.Equal(t, service.Task{ID: "a", Text: "new", State: streak.State{Done: true, CurrentStreak: 3, BestStreak: 5}}, got)

	untouched := service.Task{ID: "b", Text: "same"}
	assert.Equal(t, untouched, service.Patch{}.Apply(untouched))
}

func TestPatch_Validate(t *testing.T) {
	neg, pos := -3, 2
	bad, empty, good := "05/01/2024", "", "2024-05-01"

	assert.NoError(t, service.Patch{}.Validate())
	assert.NoError(t, service.Patch{CurrentStreak: &pos, BestStreak: &pos, LastCompletedAt: &good}.Validate())
	assert.NoError(t, service.Patch{LastCompletedAt: &empty}.Validate())

	assert.EqualError(t, service.Patch{CurrentStreak: &neg}.Validate(), "currentStreak must not be negative")
	assert.EqualError(t, service.Patch{BestStreak: &neg}.Validate(), "bestStreak must not be negative")
	assert.EqualError(t, service.Patch{LastCompletedAt: &bad}.Validate(), "lastCompletedAt must be YYYY-MM-DD")
}
