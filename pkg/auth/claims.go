package auth

import (
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// StaffPayload captures the data available when minting a staff token.
type StaffPayload struct {
	UserID string
	Name   string
	Role   enums.StaffRole
	JTI    string
}

// StaffClaims is the typed JWT presented by dashboard users. The subject
// carries the staff user id.
type StaffClaims struct {
	Name string          `json:"name,omitempty"`
	Role enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
