package dto

// CourseResponse is a catalogue entry with the label the UI shows in selectors.
type CourseResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// AssignmentResponse is an assignment available for submission under a course.
type AssignmentResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	CourseID string `json:"courseId"`
}
