package session

type EventKind string

const (
	EventSurfaceShown  EventKind = "surface_shown"
	EventSurfaceHidden EventKind = "surface_hidden"
	EventInteraction   EventKind = "interaction"
	EventDismiss       EventKind = "dismiss"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	ItemID   string    `json:"item_id,omitempty"`
	ActionID string    `json:"action_id,omitempty"`
}
