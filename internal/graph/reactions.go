package graph

import (
	"context"
	"fmt"
	"strings"
)

// likeReactionTypes are the reaction kinds treated as a "like", compared
// case-insensitively.
var likeReactionTypes = map[string]bool{
	"like":      true,
	"thumbsup":  true,
	"thumbs_up": true,
}

// identity is the id-bearing part of a Graph identity object.
type identity struct {
	ID string `json:"id"`
}

// reaction is one element of a Graph reactions collection. Depending on
// the endpoint the reacting user arrives under either user or createdBy.
type reaction struct {
	ReactionType string    `json:"reactionType"`
	User         *identity `json:"user"`
	CreatedBy    *identity `json:"createdBy"`
}

// actorID returns the reacting user's id, preferring the user field and
// falling back to createdBy. Empty when neither carries an id.
func (r reaction) actorID() string {
	if r.User != nil && r.User.ID != "" {
		return r.User.ID
	}
	if r.CreatedBy != nil {
		return r.CreatedBy.ID
	}
	return ""
}

// isLike reports whether the reaction counts as a like/thumbs-up.
func (r reaction) isLike() bool {
	return likeReactionTypes[strings.ToLower(r.ReactionType)]
}

// reactionsPage mirrors one page of a Graph collection response.
type reactionsPage struct {
	Value    []reaction `json:"value"`
	NextLink string     `json:"@odata.nextLink"`
}

// reactionsURL builds the reactions collection URL for a message
// resource path relative to the base URL. An empty path is rejected
// before any network call.
func (c *Client) reactionsURL(messageResource string) (string, error) {
	messagePath := strings.Trim(messageResource, "/")
	if messagePath == "" {
		return "", &ValidationError{Reason: "empty message resource path"}
	}
	return fmt.Sprintf("%s/%s/reactions", c.baseURL, messagePath), nil
}

// collectReactions walks the paginated reactions collection starting at
// url, following @odata.nextLink continuations until none remains. Any
// terminal failure discards pages already collected.
func (c *Client) collectReactions(ctx context.Context, url string) ([]reaction, error) {
	var reactions []reaction
	nextURL := url

	for nextURL != "" {
		var page reactionsPage
		if err := c.getJSON(ctx, nextURL, "reactions page", &page); err != nil {
			return nil, err
		}

		c.logger.Debug().Int("count", len(page.Value)).Msg("received reactions page")
		reactions = append(reactions, page.Value...)
		nextURL = page.NextLink
	}

	return reactions, nil
}

// extractLikerIDs filters reactions down to likes and returns the unique
// actor ids in first-seen order. Records without a usable id are skipped
// with a warning; partial records are expected from a third-party API.
func (c *Client) extractLikerIDs(reactions []reaction) []string {
	var likerIDs []string
	seen := make(map[string]bool)

	for _, r := range reactions {
		if !r.isLike() {
			continue
		}

		userID := r.actorID()
		if userID == "" {
			c.logger.Warn().
				Str("reaction_type", r.ReactionType).
				Msg("reaction record has no usable user id, skipping")
			continue
		}

		if seen[userID] {
			continue
		}
		seen[userID] = true
		likerIDs = append(likerIDs, userID)
	}

	return likerIDs
}
