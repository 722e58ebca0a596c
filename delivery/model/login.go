package model

type (
	// LoginRequest is the JSON form of the login submission. Browsers post
	// the same fields form-encoded.
	LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}

	// LoginResponse is the reply to POST /login.
	LoginResponse struct {
		Success     bool   `json:"success"`
		RedirectURL string `json:"redirect_url,omitempty"`
		Message     string `json:"message,omitempty"`
		Token       string `json:"token,omitempty"`
	}
)

type (
	ResetResponse struct {
		Success     bool   `json:"success"`
		Message     string `json:"message,omitempty"`
		RedirectURL string `json:"redirect_url,omitempty"`
	}

	EmbedCheckResponse struct {
		URL        string `json:"url"`
		Status     string `json:"status"`
		Embeddable bool   `json:"embeddable"`
		Reason     string `json:"reason,omitempty"`
	}

	MeResponse struct {
		UserID    string `json:"user_id"`
		Email     string `json:"email"`
		SessionID string `json:"session_id"`
		ExpiresAt int64  `json:"expires_at"`
	}
)
