package dto

// LoginRequest is the body for POST /auth/login, shared by the web UI and
// the sync agent.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=1,max=120"`
	Password string `json:"password" binding:"required,min=1"`
}

// UserResponse is the account info echoed back after login or register.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
