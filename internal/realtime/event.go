package realtime

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event is what every subscriber receives after a committed post mutation.
// Post carries the full post for create and update, and only the id for
// delete.
type Event struct {
	Action Action `json:"action" cbor:"action"`
	Post   any    `json:"post" cbor:"post"`
}

func PostCreated(post any) Event {
	return Event{Action: ActionCreate, Post: post}
}

func PostUpdated(post any) Event {
	return Event{Action: ActionUpdate, Post: post}
}

func PostDeleted(postID string) Event {
	return Event{Action: ActionDelete, Post: postID}
}
