package graph

import "context"

// ListLikeReactors returns the display names of users who reacted with a
// like/thumbs-up to a message, ordered by first-seen reaction across all
// pages. Names are deduplicated, so a name appears once even when two
// distinct ids resolve to it. Users whose profile lacks a display name
// are dropped rather than substituted, so the result can be shorter than
// the liker count.
//
// messageResource is the path to the message relative to the Graph base
// URL, for example teams/{team-id}/channels/{channel-id}/messages/{message-id}
// or chats/{chat-id}/messages/{message-id}.
//
// The call either fully succeeds or fails: a terminal HTTP or decode
// failure on any step aborts the whole walk and no partial list is
// returned.
func (c *Client) ListLikeReactors(ctx context.Context, messageResource string) ([]string, error) {
	reactionsURL, err := c.reactionsURL(messageResource)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("url", reactionsURL).Msg("fetching reactions")

	reactions, err := c.collectReactions(ctx, reactionsURL)
	if err != nil {
		return nil, err
	}

	likerIDs := c.extractLikerIDs(reactions)
	c.logger.Info().Int("count", len(likerIDs)).Msg("found unique users who liked the message")

	displayNames := make([]string, 0, len(likerIDs))
	seenNames := make(map[string]bool, len(likerIDs))

	for _, userID := range likerIDs {
		name, err := c.displayName(ctx, userID)
		if err != nil {
			return nil, err
		}
		if name == "" || seenNames[name] {
			continue
		}
		seenNames[name] = true
		displayNames = append(displayNames, name)
	}

	return displayNames, nil
}
