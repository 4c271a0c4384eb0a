package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/review"
)

const (
	defaultQueuePageSize = 50
	maxQueuePageSize     = 200
	maxBatchSize         = 500
)

type batchRequest struct {
	Action string  `json:"action"`
	IDs    []int64 `json:"ids"`
}

func (s *Server) handleListQueue(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultQueuePageSize, 1, maxQueuePageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	offset, err := parsePositiveInt(c.QueryParam("offset"), 0, 0, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"offset": err.Error()})
	}

	page, err := s.reviews.ListPending(c.Request().Context(), limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Msg("list review queue failed")
		return internalError(c, "Failed to load review queue")
	}
	return success(c, page)
}

func (s *Server) handleMerge(c echo.Context) error {
	id, principal, err := s.queueTarget(c)
	if err != nil {
		return err
	}
	outcome, err := s.reviews.Merge(c.Request().Context(), id, principal.Username)
	if err != nil {
		return s.reviewError(c, "merge", id, err)
	}
	return success(c, outcome)
}

func (s *Server) handleReject(c echo.Context) error {
	id, principal, err := s.queueTarget(c)
	if err != nil {
		return err
	}
	outcome, err := s.reviews.Reject(c.Request().Context(), id, principal.Username)
	if err != nil {
		return s.reviewError(c, "reject", id, err)
	}
	return success(c, outcome)
}

func (s *Server) handleSkip(c echo.Context) error {
	id, _, err := s.queueTarget(c)
	if err != nil {
		return err
	}
	if err := s.reviews.Skip(c.Request().Context(), id); err != nil {
		return s.reviewError(c, "skip", id, err)
	}
	return success(c, map[string]any{"queue_item_id": id, "skipped": true})
}

func (s *Server) handleBatch(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req batchRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action != review.ActionMerge && action != review.ActionReject {
		return failValidation(c, map[string]string{"action": "must be merge or reject"})
	}
	if len(req.IDs) == 0 || len(req.IDs) > maxBatchSize {
		return failValidation(c, map[string]string{"ids": "must contain between 1 and " + strconv.Itoa(maxBatchSize) + " ids"})
	}

	result, err := s.reviews.Batch(c.Request().Context(), action, req.IDs, principal.Username)
	if err != nil {
		if errors.Is(err, review.ErrInvalidAction) {
			return failValidation(c, map[string]string{"action": err.Error()})
		}
		s.logger.Error().Err(err).Str("action", action).Msg("review batch failed")
		return internalError(c, "Failed to apply review batch")
	}
	return success(c, result)
}

// queueTarget reads the caller and the :id path parameter. Its errors are
// echo HTTP errors rendered by the server error handler.
func (s *Server) queueTarget(c echo.Context) (int64, reviewerPrincipal, error) {
	principal, ok := principalFromContext(c)
	if !ok {
		return 0, reviewerPrincipal{}, echo.ErrUnauthorized
	}
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, reviewerPrincipal{}, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, principal, nil
}

func (s *Server) reviewError(c echo.Context, action string, id int64, err error) error {
	switch {
	case errors.Is(err, review.ErrNotFound):
		return failNotFound(c, "Queue item not found")
	case errors.Is(err, review.ErrConflict):
		return fail(c, http.StatusConflict, "Queue item cannot be resolved", map[string]any{"reason": err.Error()})
	default:
		s.logger.Error().Err(err).Str("action", action).Int64("queue_item_id", id).Msg("review action failed")
		return internalError(c, "Failed to apply review action")
	}
}
