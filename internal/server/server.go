// Package server exposes the HTTP JSON API.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/saveurhq/tastebook/internal/ai"
	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/i18n"
	"github.com/saveurhq/tastebook/internal/platform/id"
	"github.com/saveurhq/tastebook/internal/platform/requestctx"
	"github.com/saveurhq/tastebook/internal/server/httpx"
	"github.com/saveurhq/tastebook/internal/server/sessioncookie"
	"github.com/saveurhq/tastebook/internal/session"
	"github.com/saveurhq/tastebook/internal/storage"
)

// Server routes API requests to storage and domain logic.
type Server struct {
	store       storage.Store
	sessions    session.Config
	flows       *ai.Flows
	now         func() time.Time
	idGenerator func() (string, error)
}

// Option customizes server construction.
type Option func(*Server)

// WithAIFlows enables the AI extraction and illustration routes.
func WithAIFlows(flows *ai.Flows) Option {
	return func(s *Server) { s.flows = flows }
}

// WithClock overrides the server clock.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDGenerator overrides the record id generator.
func WithIDGenerator(idGenerator func() (string, error)) Option {
	return func(s *Server) { s.idGenerator = idGenerator }
}

// New builds a server over the given store and session config.
func New(store storage.Store, sessions session.Config, opts ...Option) *Server {
	s := &Server{
		store:       store,
		sessions:    sessions,
		now:         time.Now,
		idGenerator: id.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler assembles the route table with shared middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", s.handleLogout)

	mux.HandleFunc("GET /api/v1/me", s.requireUser(s.handleGetProfile))
	mux.HandleFunc("PUT /api/v1/me", s.requireUser(s.handleUpdateProfile))
	mux.HandleFunc("GET /api/v1/me/preferences", s.requireUser(s.handleGetPreferences))
	mux.HandleFunc("PUT /api/v1/me/preferences", s.requireUser(s.handlePutPreferences))

	mux.HandleFunc("POST /api/v1/recipes", s.requireUser(s.handleCreateRecipe))
	mux.HandleFunc("GET /api/v1/recipes", s.handleListRecipes)
	mux.HandleFunc("GET /api/v1/recipes/{id}", s.handleGetRecipe)
	mux.HandleFunc("PUT /api/v1/recipes/{id}", s.requireUser(s.handleUpdateRecipe))
	mux.HandleFunc("DELETE /api/v1/recipes/{id}", s.requireUser(s.handleDeleteRecipe))
	mux.HandleFunc("POST /api/v1/recipes/{id}/reorder", s.requireUser(s.handleReorderRecipe))
	mux.HandleFunc("GET /api/v1/recipes/{id}/scale", s.handleScaleRecipe)
	mux.HandleFunc("PUT /api/v1/recipes/{id}/rating", s.requireUser(s.handlePutRating))

	mux.HandleFunc("GET /api/v1/shopping-list", s.requireUser(s.handleListShoppingItems))
	mux.HandleFunc("POST /api/v1/shopping-list", s.requireUser(s.handleAddShoppingItem))
	mux.HandleFunc("POST /api/v1/shopping-list/from-recipe", s.requireUser(s.handleShoppingFromRecipe))
	mux.HandleFunc("POST /api/v1/shopping-list/{id}/toggle", s.requireUser(s.handleToggleShoppingItem))
	mux.HandleFunc("DELETE /api/v1/shopping-list/{id}", s.requireUser(s.handleDeleteShoppingItem))
	mux.HandleFunc("POST /api/v1/shopping-list/clear-checked", s.requireUser(s.handleClearChecked))

	mux.HandleFunc("GET /api/v1/export/recipes/{id}", s.handleExportRecipe)
	mux.HandleFunc("GET /api/v1/export/collection", s.requireUser(s.handleExportCollection))
	mux.HandleFunc("POST /api/v1/import/collection", s.requireUser(s.handleImportCollection))

	mux.HandleFunc("POST /api/v1/ai/extract-recipe", s.requireUser(s.handleExtractRecipe))
	mux.HandleFunc("POST /api/v1/ai/recipe-image", s.requireUser(s.handleRecipeImage))

	return httpx.Chain(
		mux,
		httpx.RequestID(),
		httpx.RecoverPanic(),
		httpx.Trace("tastebook-server"),
		s.authenticate(),
	)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the session token into a request-scoped user id.
// It never rejects; handlers that need a user use requireUser.
func (s *Server) authenticate() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token, _ = sessioncookie.Read(r)
			}
			if token != "" {
				claims, err := session.Verify(token, s.sessions)
				if err == nil {
					r = r.WithContext(requestctx.WithUserID(r.Context(), claims.UserID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) requireUser(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requestctx.UserIDFromContext(r.Context()) == "" {
			httpx.WriteError(w, session.ErrInvalid)
			return
		}
		handler(w, r)
	}
}

// storageError maps storage sentinels onto typed API errors so handlers
// never leak raw 500s for missing records.
func storageError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.CodeNotFound, "record not found", err)
	}
	return err
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requestLanguage resolves the response locale: explicit lang parameter,
// then Accept-Language, then the stored user locale.
func (s *Server) requestLanguage(r *http.Request) language.Tag {
	if value := r.URL.Query().Get("lang"); value != "" {
		if tag, ok := i18n.ParseTag(value); ok {
			return tag
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if preferred, _, err := language.ParseAcceptLanguage(header); err == nil {
			return i18n.MatchTags(preferred)
		}
	}
	if userID := requestctx.UserIDFromContext(r.Context()); userID != "" {
		if user, err := s.store.GetUser(r.Context(), userID); err == nil {
			if tag, ok := i18n.ParseTag(user.Locale); ok {
				return tag
			}
		}
	}
	return i18n.DefaultTag()
}
