package http

import (
	"net/http"

	"github.com/aussiebroadwan/authd/internal/auth/domain"
	"github.com/aussiebroadwan/authd/internal/auth/service"
	"github.com/aussiebroadwan/authd/pkg/authsdk"
	"github.com/aussiebroadwan/authd/pkg/httpx"
	"github.com/aussiebroadwan/authd/pkg/slogx"
)

// AuthHandler serves the sign-in lifecycle under /v1/auth.
type AuthHandler struct {
	AuthService *service.AuthService
	Cookies     CookieConfig
}

// HandleRegister godoc
//
//	@Summary		Create an account
//	@Description	Creates an unverified account, mails a verification link and signs the caller in.
//	@Description	Tokens are returned as the accessToken and refreshToken cookies.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"email, password, confirmPassword"
//	@Success		201		{object}	authsdk.User
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse	"email_in_use"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, r, &InvalidRequestError{Reason: "Passwords do not match", Fields: []string{"confirmPassword"}})
		return
	}

	res, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Cookies.setAuthCookies(w, res.Tokens)
	httpx.WriteJSON(w, http.StatusCreated, toUser(res.User))
}

// HandleLogin godoc
//
//	@Summary		Sign in
//	@Description	Checks the credentials and opens a new session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.User
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.AuthService.Login(r.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.Cookies.setAuthCookies(w, res.Tokens)
	httpx.WriteJSON(w, http.StatusOK, toUser(res.User))
}

// HandleRefresh godoc
//
//	@Summary		Refresh the access token
//	@Description	Uses the refreshToken cookie to issue a new access token. The refresh token is rotated
//	@Description	when the session is within a day of expiry. Any failure clears both cookies.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"missing_refresh_token, invalid_refresh_token, session_expired"
//	@Router			/v1/auth/refresh [get].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.AuthService.Refresh(r.Context(), refreshToken(r))
	if err != nil {
		h.Cookies.clearAuthCookies(w)
		writeError(w, r, err)
		return
	}

	h.Cookies.setAuthCookies(w, tokens)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Access token refreshed"})
}

// HandleLogout godoc
//
//	@Summary		Sign out
//	@Description	Ends the session named by the access token, if any, and clears the cookies. Always succeeds.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Router			/v1/auth/logout [get].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.AuthService.Logout(r.Context(), httpx.AccessToken(r, authsdk.AccessTokenCookie))

	h.Cookies.clearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logout successful"})
}

// HandleVerifyEmail godoc
//
//	@Summary		Verify an email address
//	@Description	Redeems the code from the verification link. Codes are single use.
//	@Tags			Auth
//	@Produce		json
//	@Param			code	path		string	true	"Verification code"
//	@Success		200		{object}	authsdk.User
//	@Failure		404		{object}	authsdk.ErrorResponse	"invalid_verification_code"
//	@Router			/v1/auth/email/verify/{code} [get].
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.AuthService.VerifyEmail(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUser(user))
}

// HandleForgotPassword godoc
//
//	@Summary		Request a password reset link
//	@Description	Mails a reset link when the address belongs to an account. The response does not reveal
//	@Description	whether it does.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ForgotPasswordRequest	true	"email"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/v1/auth/password/forgot [post].
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	h.AuthService.ForgotPassword(r.Context(), req.Email)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password reset email sent"})
}

// HandleResetPassword godoc
//
//	@Summary		Reset a password
//	@Description	Sets a new password using the code from the reset link and ends every session of the
//	@Description	account. The caller's cookies are cleared.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResetPasswordRequest	true	"password, verificationCode"
//	@Success		200		{object}	authsdk.User
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		404		{object}	authsdk.ErrorResponse	"invalid_verification_code"
//	@Router			/v1/auth/password/reset [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.AuthService.ResetPassword(r.Context(), service.ResetPasswordInput{
		Password: req.Password,
		Code:     req.VerificationCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).InfoContext(r.Context(), "password reset", "user_id", user.ID)
	h.Cookies.clearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, toUser(user))
}

func toUser(u domain.PublicUser) authsdk.User {
	return authsdk.User{
		ID:        u.ID,
		Email:     u.Email,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
