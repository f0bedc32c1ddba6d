package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/go-github/v56/github"

	"github.com/okian/careerpulse/internal/domain/model"
)

// ErrInvalidBaseURL is returned by NewHarvester for an unparsable API root.
var ErrInvalidBaseURL = errors.New("invalid api base url")

// Classify maps a client error to the reason a unit was skipped.
func Classify(err error) model.SkippedReason {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return model.SkipCanceled
	}
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return model.SkipRateLimited
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return classifyStatus(respErr.Response)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return model.SkipDecode
	}
	return model.SkipNetwork
}

func classifyStatus(resp *http.Response) model.SkippedReason {
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized:
		return model.SkipUnauthorized
	case code == http.StatusNotFound:
		return model.SkipNotFound
	case code == http.StatusTooManyRequests:
		return model.SkipRateLimited
	case code == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return model.SkipRateLimited
	case code == http.StatusForbidden:
		return model.SkipUnauthorized
	default:
		return model.SkipUpstream
	}
}

func isNotFound(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
}
