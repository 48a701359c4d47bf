package athena_query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/athena"
	"github.com/danthegoodman1/glueexport/utils"
	"github.com/rs/zerolog"
)

var (
	errNotTerminal = errors.New("query still running")
)

type (
	// AthenaAPI is the part of athenaiface.AthenaAPI the client calls
	AthenaAPI interface {
		StartQueryExecutionWithContext(ctx aws.Context, input *athena.StartQueryExecutionInput, opts ...request.Option) (*athena.StartQueryExecutionOutput, error)
		GetQueryExecutionWithContext(ctx aws.Context, input *athena.GetQueryExecutionInput, opts ...request.Option) (*athena.GetQueryExecutionOutput, error)
	}

	PollConfig struct {
		InitialInterval time.Duration
		MaxInterval     time.Duration
		Multiplier      float64
		// MaxWait bounds the total time spent polling
		MaxWait time.Duration
		// MaxAttempts bounds the number of status checks, 0 for no bound
		MaxAttempts uint64
	}

	Client struct {
		api  AthenaAPI
		poll PollConfig
	}
)

func DefaultPollConfig() PollConfig {
	return PollConfig{
		InitialInterval: time.Duration(utils.QUERY_POLL_INITIAL_MS) * time.Millisecond,
		MaxInterval:     time.Duration(utils.QUERY_POLL_MAX_MS) * time.Millisecond,
		Multiplier:      1.5,
		MaxWait:         time.Duration(utils.QUERY_MAX_WAIT_SEC) * time.Second,
	}
}

func NewClient(api AthenaAPI, poll PollConfig) *Client {
	return &Client{
		api:  api,
		poll: poll,
	}
}

// Submit starts the query and returns its execution id
func (c *Client) Submit(ctx context.Context, query, database, outputLocation string) (string, error) {
	out, err := c.api.StartQueryExecutionWithContext(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(query),
		QueryExecutionContext: &athena.QueryExecutionContext{
			Database: aws.String(database),
		},
		ResultConfiguration: &athena.ResultConfiguration{
			OutputLocation: aws.String(outputLocation),
		},
	})
	if err != nil {
		return "", fmt.Errorf("error in StartQueryExecution: %w", err)
	}
	id := aws.StringValue(out.QueryExecutionId)
	zerolog.Ctx(ctx).Debug().Str("executionID", id).Str("database", database).Msg("submitted query")
	return id, nil
}

// WaitForCompletion polls with exponential backoff until the execution reaches a terminal
// state. FAILED and CANCELLED come back as *utils.QueryFailedError with the service's reason,
// running out of attempts or time as utils.ErrQueryTimeout.
func (c *Client) WaitForCompletion(ctx context.Context, executionID string) error {
	logger := zerolog.Ctx(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.poll.InitialInterval
	b.MaxInterval = c.poll.MaxInterval
	if c.poll.Multiplier > 0 {
		b.Multiplier = c.poll.Multiplier
	}
	b.MaxElapsedTime = c.poll.MaxWait
	b.Reset()

	var bo backoff.BackOff = b
	if c.poll.MaxAttempts > 0 {
		// the first check is not a retry
		bo = backoff.WithMaxRetries(bo, c.poll.MaxAttempts-1)
	}
	bo = backoff.WithContext(bo, ctx)

	lastState := ""
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		out, err := c.api.GetQueryExecutionWithContext(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(executionID),
		})
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error in GetQueryExecution: %w", err))
		}
		status := out.QueryExecution.Status
		state := aws.StringValue(status.State)
		if state != lastState {
			logger.Debug().Str("executionID", executionID).Str("state", state).Int("attempt", attempts).Msg("query state changed")
			lastState = state
		}
		switch state {
		case athena.QueryExecutionStateSucceeded:
			return nil
		case athena.QueryExecutionStateFailed, athena.QueryExecutionStateCancelled:
			return backoff.Permanent(&utils.QueryFailedError{
				ExecutionID: executionID,
				State:       state,
				Reason:      aws.StringValue(status.StateChangeReason),
			})
		}
		return errNotTerminal
	}, bo)

	if errors.Is(err, errNotTerminal) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn().Str("executionID", executionID).Int("attempts", attempts).Str("state", lastState).Msg("gave up waiting for query")
		return utils.ErrQueryTimeout
	}
	return err
}

// ResultLocation is where the service writes the delimited result of an execution
func ResultLocation(outputLocation, executionID string) string {
	return strings.TrimRight(outputLocation, "/") + "/" + executionID + ".csv"
}
