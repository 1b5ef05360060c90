package model

// UserProfile is the cached profile blob of the signed-in user
type UserProfile struct {
	Subject string `json:"sub,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// IsEmpty reports whether no profile attribute is known
func (p *UserProfile) IsEmpty() bool {
	return p == nil || (p.Subject == "" && p.Name == "" && p.Email == "" && p.Picture == "")
}
