package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bnema/crew/internal/domain"
	"github.com/bnema/crew/internal/ports"
)

// CateringService exposes the work, fare, rating and wage endpoints. Role
// permissions are checked before any request is sent.
type CateringService struct {
	gateway ports.Gateway
}

func NewCateringService(gateway ports.Gateway) *CateringService {
	return &CateringService{gateway: gateway}
}

func (s *CateringService) ListWorks(ctx context.Context, role domain.Role) ([]domain.Work, error) {
	if err := authorize(role, domain.ActionListWorks); err != nil {
		return nil, err
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodGet, Path: rolePath(role, "works")})
	if err := outcome.Err(); err != nil {
		return nil, err
	}

	works := []domain.Work{}
	if len(outcome.Payload) == 0 {
		return works, nil
	}
	if err := decodeCollection(outcome.Payload, "works", &works); err != nil {
		return nil, err
	}
	return works, nil
}

func (s *CateringService) CreateWork(ctx context.Context, role domain.Role, work domain.Work) (domain.Work, error) {
	if err := authorize(role, domain.ActionCreateWork); err != nil {
		return domain.Work{}, err
	}
	if err := work.Validate(); err != nil {
		return domain.Work{}, err
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodPost, Path: rolePath(role, "works"), Body: work})
	if err := outcome.Err(); err != nil {
		return domain.Work{}, err
	}

	created := work
	if len(outcome.Payload) > 0 {
		if err := decodeItem(outcome.Payload, "work", &created); err != nil {
			return domain.Work{}, err
		}
	}
	return created, nil
}

func (s *CateringService) AssignWork(ctx context.Context, cmd AssignWorkCommand) error {
	if err := authorize(cmd.Role, domain.ActionAssignWork); err != nil {
		return err
	}
	workID, err := pathID("work", cmd.WorkID)
	if err != nil {
		return err
	}

	workers := make([]string, 0, len(cmd.WorkerIDs))
	for _, id := range cmd.WorkerIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			workers = append(workers, trimmed)
		}
	}
	if len(workers) == 0 {
		return errors.New("at least one worker id is required")
	}

	outcome := s.gateway.Call(ctx, ports.Request{
		Role:   cmd.Role,
		Method: http.MethodPost,
		Path:   rolePath(cmd.Role, "works", workID, "assign"),
		Body:   map[string][]string{"worker_ids": workers},
	})
	return outcome.Err()
}

func (s *CateringService) ApplyForWork(ctx context.Context, role domain.Role, workID string) error {
	if err := authorize(role, domain.ActionApplyForWork); err != nil {
		return err
	}
	id, err := pathID("work", workID)
	if err != nil {
		return err
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodPost, Path: rolePath(role, "works", id, "apply")})
	return outcome.Err()
}

func (s *CateringService) ListFares(ctx context.Context, role domain.Role) ([]domain.Fare, error) {
	if err := authorize(role, domain.ActionManageFares); err != nil {
		return nil, err
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodGet, Path: rolePath(role, "fares")})
	if err := outcome.Err(); err != nil {
		return nil, err
	}

	fares := []domain.Fare{}
	if len(outcome.Payload) == 0 {
		return fares, nil
	}
	if err := decodeCollection(outcome.Payload, "fares", &fares); err != nil {
		return nil, err
	}
	return fares, nil
}

func (s *CateringService) CreateFare(ctx context.Context, role domain.Role, fare domain.Fare) (domain.Fare, error) {
	if err := authorize(role, domain.ActionManageFares); err != nil {
		return domain.Fare{}, err
	}
	if err := fare.Validate(); err != nil {
		return domain.Fare{}, err
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodPost, Path: rolePath(role, "fares"), Body: fare})
	if err := outcome.Err(); err != nil {
		return domain.Fare{}, err
	}

	created := fare
	if len(outcome.Payload) > 0 {
		if err := decodeItem(outcome.Payload, "fare", &created); err != nil {
			return domain.Fare{}, err
		}
	}
	return created, nil
}

func (s *CateringService) UpdateFare(ctx context.Context, role domain.Role, cmd UpdateFareCommand) (domain.Fare, error) {
	if err := authorize(role, domain.ActionManageFares); err != nil {
		return domain.Fare{}, err
	}
	id, err := pathID("fare", cmd.FareID)
	if err != nil {
		return domain.Fare{}, err
	}
	if cmd.Update.Amount != nil && *cmd.Update.Amount < 0 {
		return domain.Fare{}, fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidFare)
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodPatch, Path: rolePath(role, "fares", id), Body: cmd.Update})
	if err := outcome.Err(); err != nil {
		return domain.Fare{}, err
	}

	updated := domain.Fare{ID: cmd.FareID}
	if len(outcome.Payload) > 0 {
		if err := decodeItem(outcome.Payload, "fare", &updated); err != nil {
			return domain.Fare{}, err
		}
	}
	return updated, nil
}

func (s *CateringService) DeleteFare(ctx context.Context, role domain.Role, fareID string) error {
	if err := authorize(role, domain.ActionManageFares); err != nil {
		return err
	}
	id, err := pathID("fare", fareID)
	if err != nil {
		return err
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodDelete, Path: rolePath(role, "fares", id)})
	return outcome.Err()
}

func (s *CateringService) SubmitRating(ctx context.Context, role domain.Role, rating domain.Rating) error {
	if err := authorize(role, domain.ActionSubmitRating); err != nil {
		return err
	}
	if err := rating.Validate(); err != nil {
		return err
	}
	id, err := pathID("work", rating.WorkID)
	if err != nil {
		return err
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodPost, Path: rolePath(role, "works", id, "ratings"), Body: rating})
	return outcome.Err()
}

func (s *CateringService) Wages(ctx context.Context, role domain.Role) (domain.WageSummary, error) {
	if err := authorize(role, domain.ActionViewWages); err != nil {
		return domain.WageSummary{}, err
	}

	outcome := s.gateway.Call(ctx, ports.Request{Role: role, Method: http.MethodGet, Path: rolePath(role, "wages")})
	if err := outcome.Err(); err != nil {
		return domain.WageSummary{}, err
	}

	var summary domain.WageSummary
	if len(outcome.Payload) == 0 {
		return summary, nil
	}
	if err := decodeItem(outcome.Payload, "wages", &summary); err != nil {
		return domain.WageSummary{}, err
	}
	return summary, nil
}

func authorize(role domain.Role, action domain.Action) error {
	if !role.Valid() {
		return fmt.Errorf("%w %q", domain.ErrUnknownRole, role)
	}
	if !role.Can(action) {
		return fmt.Errorf("%w: %s cannot %s", domain.ErrRoleNotPermitted, role, strings.ReplaceAll(string(action), "_", " "))
	}
	return nil
}

func rolePath(role domain.Role, segments ...string) string {
	return "/" + string(role) + "/" + strings.Join(segments, "/")
}

func pathID(kind string, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%s id is required", kind)
	}
	return url.PathEscape(trimmed), nil
}
