package entity

import "time"

// Role is the authorization level carried in tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Status is the activation state of an account.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

// User represents an account row in the `users` table / document in the `users` collection.
// PasswordResetToken and PasswordResetExpires are always set or cleared together.
type User struct {
	ID                   string     `db:"id" bson:"_id"`
	Email                string     `db:"email" bson:"email"`
	PasswordHash         *string    `db:"password_hash" bson:"password,omitempty"`
	Name                 string     `db:"name" bson:"name"`
	Role                 Role       `db:"role" bson:"role"`
	Status               Status     `db:"status" bson:"status"`
	PasswordResetToken   *string    `db:"password_reset_token" bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time `db:"password_reset_expires" bson:"passwordResetExpires,omitempty"`
	CreatedAt            time.Time  `db:"created_at" bson:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" bson:"updatedAt"`
}

// CanLogin is true only for active accounts with a stored password hash.
func (u *User) CanLogin() bool {
	return u.Status == StatusActive && u.PasswordHash != nil && *u.PasswordHash != ""
}

// View is the public projection returned to clients; it never includes credentials.
type View struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToView projects a User into its client-facing shape.
func (u *User) ToView() View {
	return View{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}
