package http

import (
	"net/http"

	"github.com/aussiebroadwan/authd/internal/auth/service"
	"github.com/aussiebroadwan/authd/pkg/authsdk"
	"github.com/aussiebroadwan/authd/pkg/httpx"
)

// AccountHandler serves the authenticated user's own account. Every route
// runs behind AuthnMiddleware.
type AccountHandler struct {
	AuthService *service.AuthService
}

// HandleMe godoc
//
//	@Summary		Get the signed-in user
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.User
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_access_token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"user_not_found"
//	@Router			/v1/user [get].
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.AuthService.GetUser(r.Context(), httpx.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(user))
}

// HandleListSessions godoc
//
//	@Summary		List live sessions
//	@Description	Returns the caller's unexpired sessions, newest first. The session making the request
//	@Description	is flagged isCurrent.
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		authsdk.Session
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_access_token"
//	@Router			/v1/sessions [get].
func (h *AccountHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	views, err := h.AuthService.ListSessions(ctx, httpx.UserID(ctx), httpx.SessionID(ctx))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]authsdk.Session, 0, len(views))
	for _, v := range views {
		out = append(out, authsdk.Session{
			ID:        v.ID,
			UserAgent: v.UserAgent,
			CreatedAt: v.CreatedAt,
			ExpiresAt: v.ExpiresAt,
			IsCurrent: v.IsCurrent,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevokeSession godoc
//
//	@Summary		Revoke a session
//	@Description	Ends one of the caller's sessions. Sessions belonging to other users are reported as not found.
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_access_token"
//	@Failure		404	{object}	authsdk.ErrorResponse	"session_not_found"
//	@Router			/v1/sessions/{id} [delete].
func (h *AccountHandler) HandleRevokeSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.AuthService.RevokeSession(ctx, httpx.UserID(ctx), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Session removed"})
}
