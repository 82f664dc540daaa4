package domain

import "fmt"

type PresenceChange string

const (
	PresenceJoined PresenceChange = "joined"
	PresenceLeft   PresenceChange = "left"
)

// Presence describes one membership change together with the member list
// that results from it.
type Presence struct {
	Change  PresenceChange `json:"change"`
	Name    string         `json:"name"`
	Notice  Message        `json:"notice"`
	Members []string       `json:"members"`
}

// PresenceNotice renders the system notice text for a membership change.
func PresenceNotice(change PresenceChange, name string) string {
	return fmt.Sprintf("%s %s", name, change)
}

// NewPresence derives the presence update for a change. The notice must
// already be part of the room history.
func NewPresence(change PresenceChange, name string, notice Message, members []string) Presence {
	list := make([]string, len(members))
	copy(list, members)

	return Presence{
		Change:  change,
		Name:    name,
		Notice:  notice,
		Members: list,
	}
}

func (p Presence) EventType() EventType {
	if p.Change == PresenceJoined {
		return EventPresenceJoined
	}
	return EventPresenceLeft
}
