package domain

import "time"

type Member struct {
	ConnectionID string    `json:"connectionId"`
	Name         string    `json:"name"`
	JoinedAt     time.Time `json:"joinedAt"`
}
