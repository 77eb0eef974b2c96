package lifecycle

// NoticeLevel is the severity of a user-facing notice
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a dismissible, non-blocking message for the user
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

// Notifier receives notices. It is called without the manager lock held.
type Notifier func(Notice)
