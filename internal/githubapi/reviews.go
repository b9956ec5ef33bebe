package githubapi

import (
	"strings"
	"time"

	"github.com/temirov/depflow/internal/gitprovider"
)

const (
	rawReviewStateApproved         = "APPROVED"
	rawReviewStateChangesRequested = "CHANGES_REQUESTED"
	rawReviewStateCommented        = "COMMENTED"
	rawReviewStateDismissed        = "DISMISSED"
	rawReviewStatePending          = "PENDING"
)

// ReviewEvent is a single review as reported by GitHub.
type ReviewEvent struct {
	Author      string
	RawState    string
	SubmittedAt time.Time
}

// ReduceReviews keeps the latest actionable review of each author. Comments
// are dropped before grouping, so a later comment never hides an earlier
// approval. Authors appear in the order first seen.
func ReduceReviews(events []ReviewEvent, pullRequestURL string) []gitprovider.Review {
	latestByAuthor := make(map[string]ReviewEvent)
	authorOrder := []string{}
	for _, event := range events {
		rawState := strings.ToUpper(strings.TrimSpace(event.RawState))
		if rawState == rawReviewStateCommented {
			continue
		}
		latest, seen := latestByAuthor[event.Author]
		if !seen {
			authorOrder = append(authorOrder, event.Author)
		}
		if !seen || event.SubmittedAt.After(latest.SubmittedAt) {
			event.RawState = rawState
			latestByAuthor[event.Author] = event
		}
	}

	reviews := make([]gitprovider.Review, 0, len(authorOrder))
	for _, author := range authorOrder {
		reviews = append(reviews, gitprovider.Review{
			Author: author,
			State:  translateReviewState(latestByAuthor[author].RawState),
			URL:    pullRequestURL,
		})
	}
	return reviews
}

func translateReviewState(rawState string) gitprovider.ReviewState {
	switch rawState {
	case rawReviewStateApproved:
		return gitprovider.ReviewStateApproved
	case rawReviewStateChangesRequested:
		return gitprovider.ReviewStateChangesRequested
	case rawReviewStatePending:
		return gitprovider.ReviewStatePending
	default:
		return gitprovider.ReviewStateCommented
	}
}
