/*
Package authsdk provides a client SDK for the authd credential and session service.

# Overview

authd issues a short-lived access token and a long-lived refresh token as
HttpOnly cookies. SDKClient keeps them in a cookie jar, so a single client
behaves like one signed-in browser:

	client := authsdk.NewSDKClient("https://auth.example.com")

	user, err := client.Register(ctx, authsdk.RegisterRequest{
		Email:           "alice@example.com",
		Password:        "correct horse",
		ConfirmPassword: "correct horse",
	})

	// Authenticated calls carry the access token cookie.
	me, err := client.Me(ctx)
	sessions, err := client.Sessions(ctx)

# Token Refresh

Access tokens expire after 15 minutes. When a call fails with
ErrorCodeInvalidAccessToken, refresh and retry:

	me, err := client.Me(ctx)
	if authsdk.IsCode(err, authsdk.ErrorCodeInvalidAccessToken) {
		if err := client.Refresh(ctx); err != nil {
			// The session is gone; sign in again.
		}
		me, err = client.Me(ctx)
	}

The refresh token cookie is only sent to /v1/auth/refresh. It is rotated
when the session is within a day of expiry; otherwise only the access token
is replaced.

# Recovery Flows

VerifyEmail and ResetPassword take the code from the mailed link.
ForgotPassword always succeeds so it cannot be used to probe for accounts.
ResetPassword ends every session of the account.

# Error Handling

Every non-2xx response is returned as an *APIError carrying the HTTP status,
a stable Code and a Description safe to display:

	_, err := client.Login(ctx, email, password)
	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
		fmt.Println(apiErr.Description) // "Invalid email or password"
	}

# Thread Safety

SDKClient is safe for concurrent use, but concurrent calls share one cookie
jar and therefore one session.
*/
package authsdk
