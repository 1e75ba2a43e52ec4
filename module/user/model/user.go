package model

// User is a directory entry. Password carries the bcrypt hash and is
// never serialized.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Password string `json:"-"`
}

// DisplayName prefers the nickname and falls back to the username.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}
