package graph

import (
	"context"
	"fmt"
	"net/url"
)

// userProfile is the subset of a Graph user record we consume.
type userProfile struct {
	DisplayName string `json:"displayName"`
}

// displayName resolves a user id to a display name via a single profile
// lookup. An empty name with a nil error means the record exists but
// carries no usable name; the caller drops such users from the output.
func (c *Client) displayName(ctx context.Context, userID string) (string, error) {
	requestURL := fmt.Sprintf("%s/users/%s", c.baseURL, url.PathEscape(userID))
	c.logger.Debug().Str("user_id", userID).Msg("fetching display name")

	var profile userProfile
	if err := c.getJSON(ctx, requestURL, "user "+userID, &profile); err != nil {
		return "", err
	}

	if profile.DisplayName == "" {
		c.logger.Warn().Str("user_id", userID).Msg("display name missing for user")
	}

	return profile.DisplayName, nil
}
