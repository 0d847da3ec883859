package model

// User is the public representation returned by POST /users/.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Credentials are sent when registering.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AccessToken is the body of a successful POST /auth/token.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// ErrorBody is the backend's error convention.
type ErrorBody struct {
	Detail string `json:"detail,omitempty"`
}
