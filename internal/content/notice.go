package content

import "errors"

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message produced at the command boundary.
type Notice struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NoticeFor converts an operation error into a notice. Structural errors
// get specific titles; anything else is reported as a generic failure.
func NoticeFor(err error) Notice {
	var (
		inv  *InvalidNameError
		dup  *DuplicateNameError
		cyc  *CyclicMoveError
		nfFi *FileNotFoundError
		nfFo *FolderNotFoundError
	)
	switch {
	case errors.As(err, &inv):
		return Notice{Level: LevelError, Title: "Invalid name", Message: err.Error()}
	case errors.As(err, &dup):
		return Notice{Level: LevelError, Title: "Name already in use", Message: err.Error()}
	case errors.As(err, &cyc):
		return Notice{Level: LevelError, Title: "Cannot move folder", Message: err.Error()}
	case errors.As(err, &nfFi), errors.As(err, &nfFo):
		return Notice{Level: LevelError, Title: "Not found", Message: err.Error()}
	default:
		return Notice{Level: LevelError, Title: "Error", Message: err.Error()}
	}
}
