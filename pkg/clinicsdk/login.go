package clinicsdk

import (
	"context"
	"fmt"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with the backend, persists the issued credential and
// populates the session. Any stale stored credential is discarded on
// failure so a half-signed-in state cannot linger.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*User, error) {
	var resp LoginResponse
	err := c.postJSON(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		c.tokens.Clear()
		return nil, err
	}

	if resp.AccessToken == "" || resp.User == nil {
		c.tokens.Clear()
		return nil, fmt.Errorf("%w: incomplete login response", ErrServer)
	}

	c.tokens.Set(resp.AccessToken)
	c.sessions.Set(resp.User)
	c.log.Info("logged in", "user", resp.User.UserID, "role", resp.User.Role)
	return resp.User, nil
}

// Logout clears the credential and session and returns to the login route.
func (c *SDKClient) Logout() {
	c.tokens.Clear()
	c.sessions.Set(nil)
	c.navigator.NavigateTo(RouteLogin)
	c.log.Info("logged out")
}
