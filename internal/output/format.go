// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"taskctl/internal/service"
)

const (
	// Separator frames a section header.
	Separator = "------------"

	// statusWidth fits the longest built-in status label ("In Progress").
	statusWidth = 11
)

// FormatTask formats one task line.
// Format: "{N:>4}  {STATUS:<11}  {TITLE}[ [priority]][ due DATE][ #tag...]\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	formatTaskLine(w, fmt.Sprintf("%4d", num), task)
}

// FormatTaskWithID formats a task line keyed by identifier instead of number.
func FormatTaskWithID(w io.Writer, task service.Task) {
	formatTaskLine(w, task.ID, task)
}

func formatTaskLine(w io.Writer, key string, task service.Task) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-*s  %s", key, statusWidth, task.Status, normalizeTitle(task.Title))
	if task.Priority.Valid() {
		fmt.Fprintf(&b, " [%s]", task.Priority)
	}
	if task.DueDate != nil {
		fmt.Fprintf(&b, " due %s", task.DueDate.Format(service.DateLayout))
	}
	for _, tag := range task.Tags {
		b.WriteString(" #" + tag)
	}
	fmt.Fprintln(w, b.String())
}

// FormatTaskDetail prints every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:          %s\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeTitle(task.Title))
	if task.Description != "" {
		fmt.Fprintf(w, "description: %s\n", task.Description)
	}
	fmt.Fprintf(w, "status:      %s\n", task.Status)
	if task.Priority.Valid() {
		fmt.Fprintf(w, "priority:    %s\n", task.Priority)
	}
	if task.DueDate != nil {
		fmt.Fprintf(w, "due:         %s\n", task.DueDate.Format(service.DateLayout))
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(w, "tags:        %s\n", strings.Join(task.Tags, ", "))
	}
	if task.AssignedTo != "" {
		fmt.Fprintf(w, "assigned to: %s\n", task.AssignedTo)
	}
	if task.CompletedDate != nil {
		fmt.Fprintf(w, "completed:   %s\n", formatTime(*task.CompletedDate))
	}
}

// FormatHeader prints a framed section header.
func FormatHeader(w io.Writer, title string) {
	fmt.Fprintln(w, Separator)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, Separator)
}

// FormatStatus formats one status catalogue entry.
func FormatStatus(w io.Writer, s service.TaskStatus) {
	fmt.Fprintf(w, "%-*s  %s\n", statusWidth, s.Key, s.Label)
}

// FormatUser formats one user line: "{ID}  {USERNAME}[  {NAME}][ <EMAIL>]".
func FormatUser(w io.Writer, u service.UserProfile) {
	line := u.ID + "  " + u.Username
	if u.Name != "" {
		line += "  " + u.Name
	}
	if u.Email != "" {
		line += " <" + u.Email + ">"
	}
	fmt.Fprintln(w, line)
}

// FormatUserDetail prints a user profile, one field per line.
func FormatUserDetail(w io.Writer, u service.UserProfile) {
	fmt.Fprintf(w, "id:       %s\n", u.ID)
	fmt.Fprintf(w, "username: %s\n", u.Username)
	if u.Name != "" {
		fmt.Fprintf(w, "name:     %s\n", u.Name)
	}
	if u.Email != "" {
		fmt.Fprintf(w, "email:    %s\n", u.Email)
	}
	if u.CreatedDate != nil {
		fmt.Fprintf(w, "created:  %s\n", formatTime(*u.CreatedDate))
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
