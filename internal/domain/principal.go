package domain

type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  Role   `json:"role,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Name != "" {
		return p.Name
	}
	if p.Phone != "" {
		return p.Phone
	}
	return p.ID
}

type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.Email == nil
}
