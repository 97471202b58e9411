// ABOUTME: The showTweets action: look up tweets by topic and sentiment, send content cards.
// ABOUTME: Triggered by ExecCode directives from the dialog tree.

package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nheidloff/facebook-watson-bot/internal/insights"
	"github.com/nheidloff/facebook-watson-bot/internal/messenger"
)

// maxTweetCards caps how many enriched cards one action run sends.
const maxTweetCards = 3

// TweetSearcher is what the tweets action needs from the insights API.
type TweetSearcher interface {
	Search(ctx context.Context, topic, sentiment string) ([]insights.Tweet, error)
}

// CardSender is what the tweets action needs from the outbound boundary.
type CardSender interface {
	SendCard(ctx context.Context, recipient string, card messenger.Card) error
}

// ShowTweets builds the showTweets action definition: search tweets for
// the topic and sentiment the dialog tree filled in, then send up to three
// as content cards to the recipient.
func ShowTweets(search TweetSearcher, sender CardSender, logger *slog.Logger) *Definition {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "actions")

	return &Definition{
		Name:   "showTweets",
		Params: []string{"recipient", "topic", "sentiment"},
		Run: func(ctx context.Context, args map[string]string) error {
			recipient := args["recipient"]
			topic := args["topic"]
			sentiment := args["sentiment"]

			tweets, err := search.Search(ctx, topic, sentiment)
			if err != nil {
				return fmt.Errorf("searching tweets: %w", err)
			}
			if len(tweets) == 0 {
				logger.Info("no tweets found",
					"topic", topic,
					"sentiment", sentiment)
				return nil
			}

			if len(tweets) > maxTweetCards {
				tweets = tweets[:maxTweetCards]
			}
			for _, tweet := range tweets {
				card := messenger.Card{
					Title:     tweet.Author,
					Subtitle:  tweet.Body,
					ImageURL:  tweet.ImageURL,
					LinkURL:   tweet.Link,
					LinkTitle: "View Tweet",
				}
				if err := sender.SendCard(ctx, recipient, card); err != nil {
					return fmt.Errorf("sending tweet card: %w", err)
				}
			}
			return nil
		},
	}
}
