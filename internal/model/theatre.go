package model

import "time"

// Theatre is a venue registered by a partner.  New theatres are inactive
// until an admin approves them.
type Theatre struct {
    ID        string    `json:"_id"`
    Name      string    `json:"name"`
    Address   string    `json:"address"`
    Phone     string    `json:"phone"`
    Email     string    `json:"email"`
    IsActive  bool      `json:"isActive"`
    OwnerID   string    `json:"owner"`
    CreatedAt time.Time `json:"createdAt"`
    UpdatedAt time.Time `json:"updatedAt"`
}
