// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"streaktodo/internal/service"
	"streaktodo/internal/streak"
)

const (
	// EmptyMessage is printed when there are no tasks.
	EmptyMessage = "No todos yet. Add one with: streaktodo add <text>"

	// savedRecently is how long a save still reads as "Saved locally".
	savedRecently = 3 * time.Second

	// progressWidth is the number of cells in the progress bar.
	progressWidth = 20
)

// FormatTask formats a task line.
// Format: "{N:>4}  [x] {TEXT}  🔥 {CURRENT}  🏆 {BEST}\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	check := " "
	if task.Done {
		check = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s  🔥 %d  🏆 %d\n",
		num, check, normalizeText(task.Text), task.CurrentStreak, task.BestStreak)
}

// FormatTasks formats the whole listing, or EmptyMessage when there are no
// tasks.
func FormatTasks(w io.Writer, tasks []service.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, EmptyMessage)
		return
	}
	for i, t := range tasks {
		FormatTask(w, i+1, t)
	}
}

// SavedLabel describes how long ago the collection was saved.
// It returns "" when nothing has been saved.
func SavedLabel(lastSaved, now time.Time) string {
	if lastSaved.IsZero() {
		return ""
	}
	delta := now.Sub(lastSaved)
	if delta < savedRecently {
		return "Saved locally"
	}
	return fmt.Sprintf("Saved %ds ago", int(delta/time.Second))
}

// FormatProgress formats the streak progress line, a progress bar and,
// when reached, the milestone line.
func FormatProgress(w io.Writer, sum streak.Summary) {
	fmt.Fprintf(w, "streak progress: %d/%d (%d%%)\n", int(math.Round(sum.Average)), sum.Goal, sum.Percent)

	filled := sum.Percent * progressWidth / 100
	fmt.Fprintf(w, "[%s%s]\n", strings.Repeat("#", filled), strings.Repeat(".", progressWidth-filled))

	if msg := MilestoneMessage(sum.Milestone); msg != "" {
		fmt.Fprintln(w, msg)
	}
}

// MilestoneMessage returns the celebration line for a milestone, or "".
func MilestoneMessage(n int) string {
	switch n {
	case 30:
		return "🎉 30-day streak milestone!"
	case 7:
		return "🎉 7-day streak milestone!"
	case 3:
		return "✨ 3-day streak milestone!"
	}
	return ""
}

// normalizeText normalizes a task text for display.
// - Empty or whitespace-only texts become "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
