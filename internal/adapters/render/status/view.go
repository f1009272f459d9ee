package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// ExpiringWithin marks tokens that expire sooner than this as expiring.
	ExpiringWithin time.Duration
}

func renderView(statuses []application.SessionStatus, opts RenderOptions, s styles) string {
	signedIn := 0
	for _, status := range statuses {
		if status.State.IsAuthenticated {
			signedIn++
		}
	}

	lines := []string{
		s.title.Render("Crew Sessions"),
		s.header.Render(fmt.Sprintf("roles: %d, signed in: %d", len(statuses), signedIn)),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render("No sessions available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderSession(status, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(status application.SessionStatus, opts RenderOptions, s styles) string {
	parts := []string{s.role.Render(status.Role.Label())}

	if !status.State.IsAuthenticated {
		parts = append(parts, s.empty.Render(fmt.Sprintf("not signed in (login: %s)", status.LoginPath)))
		if status.State.LastError != "" {
			parts = append(parts, s.warning.Render("last error: "+status.State.LastError))
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	parts = append(parts, s.signedIn.Render("signed in as "+principalLabel(status.State.Principal)))
	if principal := status.State.Principal; principal != nil {
		if contact := contactLine(principal); contact != "" {
			parts = append(parts, s.detail.Render(contact))
		}
	}
	parts = append(parts, expiryLine(status.ExpiresAt, opts, s))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func principalLabel(principal *domain.Principal) string {
	if principal == nil {
		return "unknown user (profile not loaded)"
	}

	name := principal.DisplayName()
	if principal.ID == "" || name == principal.ID {
		return name
	}
	return fmt.Sprintf("%s (id %s)", name, principal.ID)
}

func contactLine(principal *domain.Principal) string {
	contacts := make([]string, 0, 2)
	if principal.Phone != "" {
		contacts = append(contacts, "phone "+principal.Phone)
	}
	if principal.Email != "" {
		contacts = append(contacts, "email "+principal.Email)
	}
	return strings.Join(contacts, ", ")
}

func expiryLine(expiresAt time.Time, opts RenderOptions, s styles) string {
	label := s.key.Render("token:")
	if expiresAt.IsZero() {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("expiry unknown"))
	}

	if opts.Now.IsZero() {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.detail.Render("expires "+expiresAt.Format(time.RFC3339)))
	}

	if !expiresAt.After(opts.Now) {
		return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", s.warning.Render("[expired]"))
	}

	remaining := expiresAt.Sub(opts.Now)
	style := lipgloss.NewStyle().Foreground(interpolateColor(remaining.Hours(), 0, 24))
	line := lipgloss.JoinHorizontal(lipgloss.Top, label, " ", style.Render(formatExpiryRelative(expiresAt, opts.Now)))
	if opts.ExpiringWithin > 0 && remaining < opts.ExpiringWithin {
		line += " " + s.warning.Render("[expiring]")
	}
	return line
}

func formatExpiryRelative(expiresAt, now time.Time) string {
	remaining := expiresAt.Sub(now)
	if remaining < time.Hour {
		minutes := int(math.Ceil(remaining.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("expires in %d %s (%s)", minutes, plural(minutes, "minute"), expiresAt.Format("15:04"))
	}
	if remaining < 24*time.Hour {
		hours := int(math.Ceil(remaining.Hours()))
		return fmt.Sprintf("expires in %d %s (%s)", hours, plural(hours, "hour"), expiresAt.Format("15:04"))
	}

	days := int(math.Ceil(remaining.Hours() / 24))
	return fmt.Sprintf("expires in %d %s (%s)", days, plural(days, "day"), expiresAt.Format("15:04 on 02 Jan"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// interpolateColor maps value onto the 240..255 greyscale ramp.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	colorCode := int(240.0 + 15.0*normalized)
	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
