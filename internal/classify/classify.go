package classify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ga4cli/internal/api"
	"ga4cli/internal/filter"
	"ga4cli/internal/query"

	"golang.org/x/oauth2"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"hermannm.dev/enumnames"
)

type Category uint8

const (
	CategoryUnknown                   Category = 1
	CategoryMalformedFilterExpression Category = 2
	CategoryInvalidFilterValue        Category = 3
	CategoryUnauthenticated           Category = 4
	CategoryQuotaExceeded             Category = 5
	CategoryInvalidArgument           Category = 6
	CategoryNotFound                  Category = 7
	CategoryMalformedBatchInput       Category = 8
)

var categoryNames = enumnames.NewMap(map[Category]string{
	CategoryUnknown:                   "Unknown",
	CategoryMalformedFilterExpression: "MalformedFilterExpression",
	CategoryInvalidFilterValue:        "InvalidFilterValue",
	CategoryUnauthenticated:           "Unauthenticated",
	CategoryQuotaExceeded:             "QuotaExceeded",
	CategoryInvalidArgument:           "InvalidArgument",
	CategoryNotFound:                  "NotFound",
	CategoryMalformedBatchInput:       "MalformedBatchInput",
})

func (category Category) IsValid() bool {
	return categoryNames.ContainsEnumValue(category)
}

func (category Category) String() string {
	return categoryNames.GetNameOrFallback(category, "[INVALID ERROR CATEGORY]")
}

func (category Category) MarshalJSON() ([]byte, error) {
	return categoryNames.MarshalToNameJSON(category)
}

func (category *Category) UnmarshalJSON(bytes []byte) error {
	return categoryNames.UnmarshalFromNameJSON(bytes, category)
}

const unauthenticatedMessage = "Not authenticated. Run 'ga4cli preset create' to store a refresh token, " +
	"and 'ga4cli config set' for OAuth client credentials."

// Classification is what the user is shown for a failed command.
type Classification struct {
	Category   Category
	Message    string
	Suggestion string // a corrected field name, if one was found
}

// Classify sorts an error into a category with a user-facing message. Local
// input errors are checked first, then remote signals in order:
// authentication, quota, invalid argument or not found, and finally unknown.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Category: CategoryUnknown}
	}

	switch {
	case errors.Is(err, filter.ErrMalformedExpression):
		return Classification{Category: CategoryMalformedFilterExpression, Message: err.Error()}
	case errors.Is(err, filter.ErrInvalidValue):
		return Classification{Category: CategoryInvalidFilterValue, Message: err.Error()}
	case errors.Is(err, query.ErrMalformedBatchInput):
		return Classification{Category: CategoryMalformedBatchInput, Message: err.Error()}
	case errors.Is(err, query.ErrInvalidQuery):
		return Classification{Category: CategoryInvalidArgument, Message: err.Error()}
	}

	signal := remoteSignalOf(err)

	// Text fallbacks look at the remote message only, never at wrapping
	// context such as batch query names.
	if signal.code == codes.Unauthenticated || isAuthFailure(err, signal.message) {
		return Classification{Category: CategoryUnauthenticated, Message: unauthenticatedMessage}
	}

	if signal.code == codes.ResourceExhausted || strings.Contains(signal.message, "quota") {
		message := "API quota exceeded."
		if signal.retryAfter != "" {
			message += fmt.Sprintf(" Retry after %ss.", signal.retryAfter)
		}
		return Classification{Category: CategoryQuotaExceeded, Message: message}
	}

	if signal.code == codes.InvalidArgument || signal.code == codes.NotFound {
		category := CategoryInvalidArgument
		if signal.code == codes.NotFound {
			category = CategoryNotFound
		}
		classification := Classification{Category: category, Message: signal.message}
		if suggestion, ok := SuggestField(signal.message); ok {
			classification.Suggestion = suggestion
		}
		return classification
	}

	return Classification{Category: CategoryUnknown, Message: err.Error()}
}

type remoteSignal struct {
	code       codes.Code
	message    string
	retryAfter string
}

// remoteSignalOf finds the API status in an error chain, either as an
// *api.APIError from the REST clients or as a gRPC status.
func remoteSignalOf(err error) remoteSignal {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return remoteSignal{code: apiErr.Code, message: apiErr.Message, retryAfter: apiErr.RetryAfter}
	}

	if grpcStatus, ok := status.FromError(err); ok && grpcStatus.Code() != codes.OK {
		signal := remoteSignal{code: grpcStatus.Code(), message: grpcStatus.Message()}
		for _, detail := range grpcStatus.Details() {
			if retryInfo, ok := detail.(*errdetails.RetryInfo); ok && retryInfo.GetRetryDelay() != nil {
				signal.retryAfter = strconv.Itoa(int(retryInfo.GetRetryDelay().AsDuration().Seconds()))
			}
		}
		return signal
	}

	return remoteSignal{code: codes.Unknown, message: err.Error()}
}

func isAuthFailure(err error, message string) bool {
	if errors.Is(err, api.ErrNotAuthenticated) {
		return true
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}
	return strings.Contains(message, "Not authenticated")
}
