package store

import "streaktodo/internal/service"

// seedTexts are the tasks a fresh collection starts with.
var seedTexts = []string{
	"Welcome to Whop Todos",
	"Add tasks with the input",
	"Persisted locally in your browser",
}

func (s *Store) seed() []service.Task {
	tasks := make([]service.Task, 0, len(seedTexts))
	for _, text := range seedTexts {
		tasks = append(tasks, service.Task{ID: s.newID(), Text: text})
	}
	return tasks
}
