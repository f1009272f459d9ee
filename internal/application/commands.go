package application

import "github.com/bnema/crew/internal/domain"

type LoginCommand struct {
	Role       domain.Role
	Identifier string
	Secret     string
}

type AssignWorkCommand struct {
	Role      domain.Role
	WorkID    string
	WorkerIDs []string
}

type UpdateFareCommand struct {
	FareID string
	Update domain.FareUpdate
}
