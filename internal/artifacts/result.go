// Package artifacts downloads build artifact archives and reads report files from them.
package artifacts

// Placeholders rendered in place of file content.
const (
	ArchiveUnreadableText = "The artifact could not be opened."
	FileUnreadableText    = "Could not be read."
)

// Status describes how one report file was obtained.
type Status int

const (
	// StatusArchiveUnreadable means the archive could not be downloaded or unpacked.
	StatusArchiveUnreadable Status = iota
	// StatusFileUnreadable means the archive opened but the file was missing or unreadable.
	StatusFileUnreadable
	// StatusRead means Content holds the trimmed file text.
	StatusRead
)

func (s Status) String() string {
	switch s {
	case StatusRead:
		return "read"
	case StatusFileUnreadable:
		return "file_unreadable"
	default:
		return "archive_unreadable"
	}
}

// FileResult is the outcome for one file.
type FileResult struct {
	Name    string
	Status  Status
	Content string
	Err     error
}

// Text returns the content, or the placeholder matching the status.
func (r FileResult) Text() string {
	switch r.Status {
	case StatusRead:
		return r.Content
	case StatusFileUnreadable:
		return FileUnreadableText
	default:
		return ArchiveUnreadableText
	}
}

// Files names the report files expected at the archive root.
type Files struct {
	Lint     string
	Test     string
	Coverage string
}

// Results holds the outcome for each report file.
type Results struct {
	Lint     FileResult
	Tests    FileResult
	Coverage FileResult
}

// Unavailable returns results marking every file as archive-unreadable.
func Unavailable(files Files, err error) Results {
	return Results{
		Lint:     FileResult{Name: files.Lint, Status: StatusArchiveUnreadable, Err: err},
		Tests:    FileResult{Name: files.Test, Status: StatusArchiveUnreadable, Err: err},
		Coverage: FileResult{Name: files.Coverage, Status: StatusArchiveUnreadable, Err: err},
	}
}
