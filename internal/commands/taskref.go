package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"streaktodo/internal/exitcode"
	"streaktodo/internal/service"
)

// MinIDPrefix is the shortest id prefix accepted as a task reference.
const MinIDPrefix = 4

// TaskRef represents a parsed task reference.
type TaskRef struct {
	TaskNum int    // 1-based position in the listing, 0 if an id prefix was given
	Prefix  string // id prefix, "" if a number was given
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses the task reference in args[0].
//
// Parsing rules:
// 1. If the arg is all digits → position in the listing
// 2. If the arg is at least MinIDPrefix characters → id prefix
// 3. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	arg := strings.TrimSpace(args[0])

	if isAllDigits(arg) {
		num, err := strconv.Atoi(arg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{TaskNum: num}, nil
	}

	if len(arg) >= MinIDPrefix {
		return TaskRef{Prefix: arg}, nil
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// ResolveTask finds the task ref points at in the current listing.
// An exact id match wins over prefix matches.
func ResolveTask(svc service.Service, ref TaskRef) (service.Task, error) {
	tasks := svc.Tasks()

	if ref.Prefix == "" {
		if ref.TaskNum < 1 || ref.TaskNum > len(tasks) {
			return service.Task{}, fmt.Errorf("task number out of range: %d", ref.TaskNum)
		}
		return tasks[ref.TaskNum-1], nil
	}

	var matches []service.Task
	for _, t := range tasks {
		if t.ID == ref.Prefix {
			return t, nil
		}
		if strings.HasPrefix(t.ID, ref.Prefix) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return service.Task{}, fmt.Errorf("task not found: %s", ref.Prefix)
	case 1:
		return matches[0], nil
	default:
		return service.Task{}, fmt.Errorf("ambiguous task id: %s", ref.Prefix)
	}
}

// resolveArgs parses and resolves the reference in args[0], printing any
// error. ok is false when the command should exit with code.
func resolveArgs(svc service.Service, args []string, errOut io.Writer) (task service.Task, code int, ok bool) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError, false
	}

	task, err = ResolveTask(svc, ref)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError, false
	}
	return task, exitcode.Success, true
}
