package domain

// CredentialsRequest is the body of signup and login requests.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by a successful signup or login.
// SessionToken travels to the client through the session cookie only.
type AuthResponse struct {
	User         *PublicUser `json:"user"`
	SessionToken string      `json:"-"`
}
