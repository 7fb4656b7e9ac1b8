package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/xamu/xamu/pkg/binder"
	"github.com/xamu/xamu/pkg/logger"
	"github.com/xamu/xamu/pkg/requestid"
	"github.com/xamu/xamu/pkg/validator"
)

// Classifier maps domain errors to an HTTPError. It reports false for
// errors it does not know.
type Classifier func(err error) (HTTPError, bool)

// NewErrorHandler writes JSON error envelopes. Errors no classifier knows
// become a 500 whose message never reveals the cause.
func NewErrorHandler(log *slog.Logger, classifiers ...Classifier) ErrorHandler {
	if log == nil {
		log = logger.Discard()
	}
	return func(ctx Context, err error) {
		status, detail := classify(err, classifiers)
		detail.RequestID = requestid.FromContext(ctx)

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(ctx, level, "request error",
			logger.Error(err),
			slog.Int("status_code", status),
			slog.String("method", ctx.Request().Method),
			slog.String("path", ctx.Request().URL.Path),
			logger.Component("error_handler"),
		)

		if rerr := JSONError(status, detail).Render(ctx.ResponseWriter(), ctx.Request()); rerr != nil {
			log.ErrorContext(ctx, "failed to render error", logger.Error(rerr))
		}
	}
}

func classify(err error, classifiers []Classifier) (int, ErrorDetail) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, ErrorDetail{
			Code:    "validation_error",
			Message: "request validation failed",
			Details: ve.Fields(),
		}
	}

	switch {
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrNotApplicable):
		return http.StatusUnsupportedMediaType, ErrorDetail{Code: "unsupported_media_type", Message: err.Error()}
	case errors.Is(err, binder.ErrMissingContentType),
		errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParseForm),
		errors.Is(err, binder.ErrFailedToParseQuery),
		errors.Is(err, binder.ErrFailedToParsePath):
		return http.StatusBadRequest, ErrorDetail{Code: "bad_request", Message: err.Error()}
	}

	for _, c := range classifiers {
		if he, ok := c(err); ok {
			return he.Code, ErrorDetail{Code: he.Key, Message: http.StatusText(he.Code)}
		}
	}

	var he HTTPError
	if errors.As(err, &he) {
		return he.Code, ErrorDetail{Code: he.Key, Message: http.StatusText(he.Code)}
	}
	return http.StatusInternalServerError, ErrorDetail{Code: ErrInternal.Key, Message: "an error occurred processing your request"}
}
