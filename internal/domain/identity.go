package domain

// Identity is the signed-in user as reported by the identity provider.
// A nil *Identity represents a signed-out session.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

// Name returns the best human-readable label for the identity.
func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.Email != "" {
		return i.Email
	}
	return i.UserID
}
