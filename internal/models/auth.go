package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds credentials submitted by the login form or an XHR client.
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// LoginResult describes a successful login. ActiveClassID is set when a
// teacher logs in while one of their classes is in session.
type LoginResult struct {
	Identity      SessionIdentity `json:"identity"`
	ActiveClassID int64           `json:"active_class_id,omitempty"`
	AccessToken   string          `json:"access_token,omitempty"`
	ExpiresIn     int64           `json:"expires_in,omitempty"`
}

// LoginResponse is the JSON body returned to XHR login callers.
type LoginResponse struct {
	Success      bool   `json:"success"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ForgotPasswordRequest starts the reset-code flow.
type ForgotPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

// ForgotPasswordResult reports how the code was delivered. DevCode is only
// populated outside production when mail delivery failed.
type ForgotPasswordResult struct {
	Message   string `json:"message"`
	Delivered bool   `json:"delivered"`
	DevCode   string `json:"dev_code,omitempty"`
	MailError string `json:"mail_error,omitempty"`
}

// ResetCodeRequest checks a code without consuming it.
type ResetCodeRequest struct {
	Email string `form:"email" json:"email"`
	Code  string `form:"code" json:"code"`
}

// ResetPasswordRequest completes the reset-code flow.
type ResetPasswordRequest struct {
	Email       string `form:"email" json:"email"`
	Code        string `form:"code" json:"code"`
	NewPassword string `form:"new_password" json:"new_password"`
}

// JWTClaims carries the role marker for bearer-token clients.
type JWTClaims struct {
	SubjectID   int64  `json:"subject_id"`
	Role        Role   `json:"role"`
	SubjectName string `json:"subject_name"`
	jwt.RegisteredClaims
}

// Identity returns the session identity encoded in the claims.
func (c JWTClaims) Identity() SessionIdentity {
	return SessionIdentity{Role: c.Role, SubjectID: c.SubjectID, SubjectName: c.SubjectName}
}
