package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidWork   = errors.New("invalid work")
	ErrInvalidFare   = errors.New("invalid fare")
	ErrInvalidRating = errors.New("invalid rating")
)

// Work is a catering shift published by an admin or sub-admin.
type Work struct {
	ID            string    `json:"id,omitempty"`
	Title         string    `json:"title"`
	Venue         string    `json:"venue,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	RequiredStaff int       `json:"required_staff"`
	AssignedStaff []string  `json:"assigned_staff,omitempty"`
	Status        string    `json:"status,omitempty"`
}

func (w Work) Validate() error {
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidWork)
	}
	if w.RequiredStaff <= 0 {
		return fmt.Errorf("%w: required staff must be positive", ErrInvalidWork)
	}
	if w.StartsAt.IsZero() || w.EndsAt.IsZero() {
		return fmt.Errorf("%w: start and end time are required", ErrInvalidWork)
	}
	if !w.EndsAt.After(w.StartsAt) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidWork)
	}
	return nil
}

// Fare is a pay rate maintained by admins. Wages are computed remotely from fares.
type Fare struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit,omitempty"`
}

func (f Fare) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFare)
	}
	if f.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidFare)
	}
	return nil
}

type FareUpdate struct {
	Name   *string  `json:"name,omitempty"`
	Amount *float64 `json:"amount,omitempty"`
	Unit   *string  `json:"unit,omitempty"`
}

type Rating struct {
	WorkID   string `json:"-"`
	WorkerID string `json:"worker_id"`
	Score    int    `json:"score"`
	Comment  string `json:"comment,omitempty"`
}

func (r Rating) Validate() error {
	if strings.TrimSpace(r.WorkID) == "" {
		return fmt.Errorf("%w: work id is required", ErrInvalidRating)
	}
	if strings.TrimSpace(r.WorkerID) == "" {
		return fmt.Errorf("%w: worker id is required", ErrInvalidRating)
	}
	if r.Score < 1 || r.Score > 5 {
		return fmt.Errorf("%w: score must be between 1 and 5", ErrInvalidRating)
	}
	return nil
}

type WageEntry struct {
	WorkID   string  `json:"work_id"`
	WorkerID string  `json:"worker_id,omitempty"`
	Title    string  `json:"title,omitempty"`
	Amount   float64 `json:"amount"`
}

// WageSummary is read-only; totals come from the server as-is.
type WageSummary struct {
	Total   float64     `json:"total"`
	Entries []WageEntry `json:"entries"`
}
