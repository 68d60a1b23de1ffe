package clinicsdk

import (
	"context"
	"fmt"
	"time"

	"github.com/cxxyao2/eclinic-v2/pkg/jwtx"
)

// FetchCurrentUser loads the user record for the given subject id.
func (c *SDKClient) FetchCurrentUser(ctx context.Context, id string) (*User, error) {
	var envelope dataEnvelope[*User]
	if err := c.getJSON(ctx, "/users/"+id, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// ValidateAndFetchUser is the guards' validate path: decode the stored
// credential, reject it locally when it is absent, undecodable, expired, or
// subject-less, otherwise fetch the user record and populate the session.
//
// Any local rejection or fetch failure walks one consistent logout path:
// credential cleared, session cleared. (nil, nil) means "not logged in";
// a non-nil error means the backend fetch itself failed.
func (c *SDKClient) ValidateAndFetchUser(ctx context.Context) (*User, error) {
	token, ok := c.tokens.Get()
	if !ok {
		c.sessions.Set(nil)
		return nil, nil
	}

	claims, err := jwtx.Decode(token)
	if err != nil {
		c.log.Warn("stored credential undecodable, clearing", "err", err)
		c.reject()
		return nil, nil
	}

	if claims.Expired(time.Now()) {
		c.reject()
		return nil, nil
	}

	id := claims.SubjectID()
	if id == "" {
		c.log.Warn("stored credential rejected", "err", jwtx.ErrNoSubject)
		c.reject()
		return nil, nil
	}

	user, err := c.FetchCurrentUser(ctx, id)
	if err != nil {
		c.reject()
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if user == nil {
		c.reject()
		return nil, nil
	}

	c.sessions.Set(user)
	return user, nil
}

// reject clears all authentication state in one place.
func (c *SDKClient) reject() {
	c.tokens.Clear()
	c.sessions.Set(nil)
}
