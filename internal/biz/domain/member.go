package domain

import "fmt"

// Member represents a workspace member as seen by the directory (value object)
type Member struct {
	ID          string
	DisplayName string
	RealName    string
	IsBot       bool
	IsDeleted   bool
}

// EffectiveName returns the display name if set, else the real name
func (m *Member) EffectiveName() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.RealName
}

// Eligible reports whether the member may take part in convention matching
func (m *Member) Eligible(systemAccountID string) bool {
	if m.IsBot || m.IsDeleted {
		return false
	}
	return systemAccountID == "" || m.ID != systemAccountID
}

// FormatDisplay formats for display
func (m *Member) FormatDisplay() string {
	return fmt.Sprintf("%s (user_id: %s)", m.EffectiveName(), m.ID)
}
