package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/saveurhq/tastebook/internal/account"
	apperrors "github.com/saveurhq/tastebook/internal/platform/errors"
	"github.com/saveurhq/tastebook/internal/platform/i18n"
	"github.com/saveurhq/tastebook/internal/platform/requestctx"
	"github.com/saveurhq/tastebook/internal/server/httpx"
	"github.com/saveurhq/tastebook/internal/server/sessioncookie"
	"github.com/saveurhq/tastebook/internal/session"
	"github.com/saveurhq/tastebook/internal/storage"
)

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Locale      string `json:"locale"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type profileResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Locale      string `json:"locale"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  profileResponse `json:"user"`
}

func toProfile(user account.User) profileResponse {
	return profileResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Locale:      user.Locale,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.CodeInvalidPayload, "decode register request", err))
		return
	}

	user, err := account.CreateUser(account.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Locale:      req.Locale,
	}, s.now, s.idGenerator)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	ctx := httpx.RequestContext(r)
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			httpx.WriteError(w, account.ErrAlreadyExists)
			return
		}
		httpx.WriteError(w, err)
		return
	}

	s.writeAuthResponse(w, r, user, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.CodeInvalidPayload, "decode login request", err))
		return
	}

	// The identifier is an email when it carries an @, a username otherwise.
	ctx := httpx.RequestContext(r)
	lookup := s.store.GetUserByUsername
	if strings.Contains(req.Username, "@") {
		lookup = s.store.GetUserByEmail
	}
	user, err := lookup(ctx, req.Username)
	if err != nil {
		// Same failure shape whether the user exists or not.
		httpx.WriteError(w, account.ErrBadCredentials)
		return
	}
	if !account.VerifyPassword(user.PasswordHash, req.Password) {
		httpx.WriteError(w, account.ErrBadCredentials)
		return
	}

	s.writeAuthResponse(w, r, user, http.StatusOK)
}

func (s *Server) writeAuthResponse(w http.ResponseWriter, r *http.Request, user account.User, status int) {
	token, _, err := session.Mint(user.ID, s.sessions)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	sessioncookie.Write(w, r, token)
	_ = httpx.WriteJSON(w, status, authResponse{Token: token, User: toProfile(user)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessioncookie.Clear(w, r)
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	user, err := s.store.GetUser(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, toProfile(user))
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Locale      *string `json:"locale"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.CodeInvalidPayload, "decode profile request", err))
		return
	}

	ctx := httpx.RequestContext(r)
	user, err := s.store.GetUser(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Locale != nil {
		tag, _ := i18n.ParseTag(*req.Locale)
		user.Locale = tag.String()
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		httpx.WriteError(w, storageError(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, toProfile(user))
}

type preferencesPayload struct {
	Dietary   []string `json:"dietary"`
	Allergens []string `json:"allergens"`
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	prefs, err := s.store.GetPreferences(ctx, requestctx.UserIDFromContext(ctx))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, preferencesPayload{
		Dietary:   emptyIfNil(prefs.Dietary),
		Allergens: emptyIfNil(prefs.Allergens),
	})
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperrors.Wrap(apperrors.CodeInvalidPayload, "decode preferences request", err))
		return
	}

	ctx := httpx.RequestContext(r)
	prefs := account.NormalizePreferences(account.Preferences{
		Dietary:   req.Dietary,
		Allergens: req.Allergens,
	})
	if err := s.store.PutPreferences(ctx, requestctx.UserIDFromContext(ctx), prefs); err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, preferencesPayload{
		Dietary:   emptyIfNil(prefs.Dietary),
		Allergens: emptyIfNil(prefs.Allergens),
	})
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
