// Package gateway talks to the remote grading API over HTTP.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"quiz-player/internal/api"
	"quiz-player/internal/domain"
)

const defaultRequestDeadline = 10 * time.Second

// Client implements player.Gateway and player.AbandonReporter.
// It never retries on its own; the caller decides what is safe to repeat.
type Client struct {
	http *req.Client
}

// New builds a client for baseURL acting on behalf of learnerID.
func New(baseURL, learnerID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestDeadline
	}
	httpClient := req.C().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal).
		SetUserAgent(userAgent()).
		SetCommonHeader("Accept", "application/json")
	if learnerID != "" {
		httpClient.SetCommonHeader(api.LearnerHeader, learnerID)
	}
	return &Client{http: httpClient}
}

// FetchQuiz loads the learner-facing copy of a quiz.
func (c *Client) FetchQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz    domain.Quiz
		failure api.ErrorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("quizId", quizID).
		SetSuccessResult(&quiz).
		SetErrorResult(&failure).
		Get(api.QuizPath)
	if err := classify(resp, err, &failure); err != nil {
		return domain.Quiz{}, errors.Wrapf(err, "fetch quiz %s", quizID)
	}
	return quiz, nil
}

func (c *Client) StartAttempt(ctx context.Context, quizID string, device domain.DeviceMetadata) (domain.Submission, error) {
	var (
		submission domain.Submission
		failure    api.ErrorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("quizId", quizID).
		SetBodyJsonMarshal(api.StartRequest(device)).
		SetSuccessResult(&submission).
		SetErrorResult(&failure).
		Post(api.StartPath)
	if err := classify(resp, err, &failure); err != nil {
		return domain.Submission{}, errors.Wrapf(err, "start attempt for quiz %s", quizID)
	}
	return submission, nil
}

func (c *Client) SubmitAnswer(ctx context.Context, submissionID string, answer domain.AnswerSubmission) (*domain.AnswerFeedback, error) {
	var (
		out     api.AnswerResponse
		failure api.ErrorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("submissionId", submissionID).
		SetBodyJsonMarshal(api.NewAnswerRequest(answer)).
		SetSuccessResult(&out).
		SetErrorResult(&failure).
		Put(api.AnswerPath)
	if err := classify(resp, err, &failure); err != nil {
		return nil, errors.Wrapf(err, "submit answer %s of %s", answer.QuestionID, submissionID)
	}
	return out.Feedback(), nil
}

func (c *Client) CompleteAttempt(ctx context.Context, submissionID string, totalTimeSpent int) (domain.CompletionResult, error) {
	var (
		out     api.CompleteResponse
		failure api.ErrorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("submissionId", submissionID).
		SetBodyJsonMarshal(api.CompleteRequest{TotalTimeSpent: totalTimeSpent}).
		SetSuccessResult(&out).
		SetErrorResult(&failure).
		Post(api.CompletePath)
	if err := classify(resp, err, &failure); err != nil {
		return domain.CompletionResult{}, errors.Wrapf(err, "complete submission %s", submissionID)
	}
	return out.Result(), nil
}

func (c *Client) ReportAbandon(ctx context.Context, submissionID string, totalTimeSpent int) error {
	var failure api.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("submissionId", submissionID).
		SetBodyJsonMarshal(api.AbandonRequest{TotalTimeSpent: totalTimeSpent}).
		SetErrorResult(&failure).
		Post(api.AbandonPath)
	return errors.Wrapf(classify(resp, err, &failure), "abandon submission %s", submissionID)
}

// classify turns a req outcome into ErrNetwork or ErrValidation.
// Transport failures, timeouts, throttling and 5xx are network errors;
// any other 4xx is a business-rule rejection.
func classify(resp *req.Response, err error, failure *api.ErrorResponse) error {
	if err != nil {
		return errors.Wrapf(domain.ErrNetwork, "%v", err)
	}
	if resp.IsSuccessState() {
		return nil
	}
	status := resp.GetStatusCode()
	msg := failure.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return errors.Wrapf(domain.ErrNetwork, "status %d: %s", status, msg)
	case status >= http.StatusBadRequest:
		return errors.Wrapf(domain.ErrValidation, "status %d: %s", status, msg)
	}
	return errors.Wrapf(domain.ErrNetwork, "unexpected status %d", status)
}
