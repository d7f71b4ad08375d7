package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type UpdateRolesRequest struct {
	Roles []string `json:"roles"`
}

// SessionResponse is the JSON body returned by login, register and refresh.
// The refresh token is deliberately absent; it travels only in the cookie.
type SessionResponse struct {
	User        AuthAccount `json:"user"`
	AccessToken string      `json:"accessToken"`
	ExpiresIn   int64       `json:"expiresIn"`
}

type CsrfTokenResponse struct {
	CsrfToken string `json:"csrfToken"`
}

type CreateProductRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
}

type UpdateProductRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Image       *string  `json:"image"`
}

type CreateOrderRequest struct {
	Items   []string `json:"items"`
	Payment string   `json:"payment"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Address string   `json:"address"`
	Comment string   `json:"comment"`
}

type UpdateOrderRequest struct {
	Status string `json:"status"`
}

type UploadResult struct {
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}
