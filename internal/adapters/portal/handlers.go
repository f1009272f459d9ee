package portal

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/bnema/crew/internal/application"
	"github.com/bnema/crew/internal/domain"
)

var loginPage = template.Must(template.New("login").Parse(`<!doctype html>
<html>
<head><title>{{.Label}} sign in</title></head>
<body>
<h1>{{.Label}} sign in</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="{{.Action}}">
<label>Phone number or email <input name="identifier" autocomplete="username"></label>
<label>Password <input name="password" type="password" autocomplete="current-password"></label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`))

type loginView struct {
	Label  string
	Action string
	Error  string
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sessionView struct {
	Role          domain.Role       `json:"role"`
	Status        string            `json:"status"`
	Authenticated bool              `json:"authenticated"`
	Principal     *domain.Principal `json:"principal,omitempty"`
	LoginPath     string            `json:"login_path"`
	LastError     string            `json:"last_error,omitempty"`
}

type handlers struct {
	sessions *application.Sessions
	catering *application.CateringService
	logger   *slog.Logger
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	views := make([]sessionView, 0, len(domain.Roles))
	for _, status := range h.sessions.Statuses(r.Context()) {
		views = append(views, newSessionView(status.State))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (h *handlers) loginForm(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.Get(role)
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown_role", err.Error())
			return
		}
		state := session.Active(r.Context())
		if state.IsAuthenticated {
			http.Redirect(w, r, role.HomePath(), http.StatusFound)
			return
		}
		renderLogin(w, http.StatusOK, role, state.LastError)
	}
}

func (h *handlers) login(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_form", "invalid form body")
			return
		}

		outcome, err := h.sessions.Login(r.Context(), application.LoginCommand{
			Role:       role,
			Identifier: r.PostForm.Get("identifier"),
			Secret:     r.PostForm.Get("password"),
		})
		switch {
		case errors.Is(err, domain.ErrLoginInFlight):
			writeError(w, http.StatusConflict, "login_in_flight", err.Error())
			return
		case errors.Is(err, domain.ErrStaleResponse):
			writeError(w, http.StatusConflict, "stale_response", err.Error())
			return
		case err != nil:
			h.logger.Error("login failed", "role", string(role), "error", err)
			writeError(w, http.StatusInternalServerError, "internal", "sign in failed")
			return
		}

		if outcome.OK() {
			http.Redirect(w, r, role.HomePath(), http.StatusSeeOther)
			return
		}

		status := http.StatusUnauthorized
		if outcome.Transport {
			status = http.StatusBadGateway
		}
		renderLogin(w, status, role, outcome.Message)
	}
}

func (h *handlers) logout(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.Get(role)
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown_role", err.Error())
			return
		}
		session.Logout(r.Context())
		http.Redirect(w, r, role.LoginPath(), http.StatusSeeOther)
	}
}

func (h *handlers) home(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		session, err := h.sessions.Get(role)
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown_role", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, newSessionView(session.State()))
	}
}

func (h *handlers) profile(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.Get(role)
		if err != nil {
			writeError(w, http.StatusNotFound, "unknown_role", err.Error())
			return
		}
		if outcome := session.RefreshProfile(r.Context()); !outcome.OK() {
			h.fail(w, r, role, outcome.Err())
			return
		}
		writeJSON(w, http.StatusOK, session.State().Principal)
	}
}

func (h *handlers) works(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		works, err := h.catering.ListWorks(r.Context(), role)
		if err != nil {
			h.fail(w, r, role, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"works": works})
	}
}

func (h *handlers) fares(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fares, err := h.catering.ListFares(r.Context(), role)
		if err != nil {
			h.fail(w, r, role, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"fares": fares})
	}
}

func (h *handlers) wages(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := h.catering.Wages(r.Context(), role)
		if err != nil {
			h.fail(w, r, role, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// fail maps a view error to a response. A session revoked during the request
// sends the browser back to the login path like the guard would.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, role domain.Role, err error) {
	var requestErr *domain.RequestError
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		http.Redirect(w, r, role.LoginPath(), http.StatusFound)
	case errors.Is(err, domain.ErrRoleNotPermitted):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.As(err, &requestErr):
		writeError(w, http.StatusBadGateway, "upstream", requestErr.Error())
	default:
		h.logger.Error("view failed", "role", string(role), "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func newSessionView(state domain.SessionState) sessionView {
	return sessionView{
		Role:          state.Role,
		Status:        string(state.Status),
		Authenticated: state.IsAuthenticated,
		Principal:     state.Principal,
		LoginPath:     state.Role.LoginPath(),
		LastError:     state.LastError,
	}
}

func renderLogin(w http.ResponseWriter, status int, role domain.Role, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = loginPage.Execute(w, loginView{Label: role.Label(), Action: role.LoginPath(), Error: message})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}
