package rooms

import "time"

// roomResponse describes a joinable room
type roomResponse struct {
	Code        string    `json:"code" example:"K3P9QZ"`                    // Join code
	MemberCount int       `json:"memberCount" example:"2"`                  // Members currently in the room
	CreatedAt   time.Time `json:"createdAt" example:"2024-01-01T12:00:00Z"` // Creation time
}
