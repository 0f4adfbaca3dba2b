package domain

// User is the locally persisted profile of a registered account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Active       bool
}

// Profile is the public projection of a user; it never carries the hash.
type Profile struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Profile projects the user for API responses.
func (u *User) Profile() Profile {
	return Profile{UserID: u.ID, Name: u.Name, Email: u.Email}
}
