package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"streaktodo/internal/service"
)

// tasksSchema describes the persisted collection. Unknown keys are allowed so
// values written by older clients (including the _justGotBest flag) still load.
const tasksSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "text"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"text": {"type": "string"},
			"done": {"type": "boolean"},
			"lastCompletedAt": {
				"anyOf": [
					{"type": "null"},
					{"type": "string", "pattern": "^([0-9]{4}-[0-9]{2}-[0-9]{2})?$"}
				]
			},
			"currentStreak": {"type": "integer", "minimum": 0},
			"bestStreak": {"type": "integer", "minimum": 0}
		}
	}
}`

var schema = jsonschema.MustCompileString("tasks.schema.json", tasksSchema)

// encode serializes the collection for storage.
func encode(tasks []service.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []service.Task{}
	}
	return json.Marshal(tasks)
}

// decode parses and validates a persisted collection.
func decode(data []byte) ([]service.Task, error) {
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing tasks: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, fmt.Errorf("validating tasks: %w", err)
	}

	var tasks []service.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decoding tasks: %w", err)
	}
	return tasks, nil
}
