package flow

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	reviewsUseConstant              = "reviews <pull-request-url>"
	reviewsShortDescriptionConstant = "Show the latest review of every reviewer on a pull request"
	reviewLineTemplateConstant      = "%s\t%s\t%s\n"
	noReviewsMessageConstant        = "pull request has no actionable reviews"
	logFieldPullRequestConstant     = "pull_request"
)

// ReviewsCommandBuilder assembles the reviews command.
type ReviewsCommandBuilder struct {
	LoggerProvider  LoggerProvider
	ServiceProvider ServiceProvider
}

// Build constructs the reviews command.
func (builder *ReviewsCommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   reviewsUseConstant,
		Short: reviewsShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}, nil
}

func (builder *ReviewsCommandBuilder) run(command *cobra.Command, arguments []string) error {
	pullRequestURL := strings.TrimSpace(arguments[0])

	service, serviceError := resolveService(builder.ServiceProvider)
	if serviceError != nil {
		return serviceError
	}

	reviews, reviewsError := service.GetPullRequestReviews(command.Context(), pullRequestURL)
	if reviewsError != nil {
		return reviewsError
	}

	if len(reviews) == 0 {
		resolveLogger(builder.LoggerProvider).Info(noReviewsMessageConstant, zap.String(logFieldPullRequestConstant, pullRequestURL))
		return nil
	}

	output := command.OutOrStdout()
	for _, review := range reviews {
		if _, writeError := fmt.Fprintf(output, reviewLineTemplateConstant, review.Author, review.State, review.URL); writeError != nil {
			return writeError
		}
	}
	return nil
}
