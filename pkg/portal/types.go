package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Course is a catalogue entry as exposed by the portal backend.
type Course struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Assignment belongs to exactly one course.
type Assignment struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	CourseID string `json:"courseId,omitempty"`
}

// UploadRequest carries the multipart fields of the upload endpoint.
type UploadRequest struct {
	FileName     string
	Content      []byte
	CourseID     string
	AssignmentID string
	StudentID    string
}

// flexibleID accepts identifiers encoded either as JSON numbers or strings.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("invalid identifier %s: %w", trimmed, err)
	}
	*f = flexibleID(number.String())
	return nil
}

type courseWire struct {
	ID         flexibleID `json:"id"`
	CourseID   flexibleID `json:"courseId"`
	Name       string     `json:"name"`
	CourseName string     `json:"courseName"`
}

func (w courseWire) toCourse() Course {
	id := string(w.CourseID)
	if id == "" {
		id = string(w.ID)
	}
	name := w.Name
	if name == "" {
		name = w.CourseName
	}
	return Course{ID: id, Name: name}
}

type assignmentWire struct {
	ID       flexibleID `json:"id"`
	Title    string     `json:"title"`
	Name     string     `json:"name"`
	CourseID flexibleID `json:"courseId"`
}

func (w assignmentWire) toAssignment() Assignment {
	title := w.Title
	if title == "" {
		title = w.Name
	}
	return Assignment{ID: string(w.ID), Title: title, CourseID: string(w.CourseID)}
}

type uploadWire struct {
	SubmissionID flexibleID      `json:"submissionId"`
	FileName     string          `json:"fileName"`
	Feedback     json.RawMessage `json:"feedback"`
}

type submissionWire struct {
	ID              flexibleID `json:"id"`
	AssignmentID    flexibleID `json:"assignmentId"`
	AssignmentTitle string     `json:"assignmentTitle"`
	StudentID       flexibleID `json:"studentId"`
	CourseID        flexibleID `json:"courseId"`
	FileName        string     `json:"fileName"`
	Status          string     `json:"status"`
	Score           *float64   `json:"score"`
	SubmittedAt     string     `json:"submittedAt"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC()
		}
	}
	if millis, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC()
	}
	return time.Time{}
}
