package request

type State int

const (
	NotStarted State = iota
	InProgress
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is what a Requestor reports on each poll. Text holds the response
// body on Success and the failure message on Failed.
type Status struct {
	State State
	Text  string
}

func (s Status) Terminal() bool {
	return s.State == Success || s.State == Failed
}

func (s Status) String() string {
	switch s.State {
	case NotStarted:
		return "Not started"
	case InProgress:
		return "Loading..."
	default:
		return s.Text
	}
}

func notStarted() Status          { return Status{State: NotStarted} }
func inProgress() Status          { return Status{State: InProgress} }
func succeeded(body string) Status { return Status{State: Success, Text: body} }
func failed(msg string) Status     { return Status{State: Failed, Text: msg} }
