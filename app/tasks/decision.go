package tasks

type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "skip"
	}
}

// Decide picks the write for a record given whether a page with its URL
// already exists.
func Decide(found, allowUpdates bool) Action {
	switch {
	case !found:
		return ActionCreate
	case allowUpdates:
		return ActionUpdate
	default:
		return ActionSkip
	}
}
