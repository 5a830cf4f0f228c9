package domain

import "fmt"

// TaskNotFoundError is returned when a task ID does not exist in the registry.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// InvalidProfileError is returned when a request names an unknown site profile.
type InvalidProfileError struct {
	Profile   string
	Supported []string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid model %q, supported: %v", e.Profile, e.Supported)
}

// ProfileMismatchError is returned when a URL does not match the patterns of
// the explicitly requested profile.
type ProfileMismatchError struct {
	URL     string
	Profile string
}

func (e *ProfileMismatchError) Error() string {
	return fmt.Sprintf("URL does not match model %q", e.Profile)
}

// ArtifactMissingError is returned when the extraction step reported success
// but no matching file exists in the staging directory.
type ArtifactMissingError struct {
	Prefix string
}

func (e *ArtifactMissingError) Error() string {
	return "File not found on server after download."
}
