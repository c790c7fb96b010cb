package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shrimbly/willienotwilly/internal/domain"
	apperrors "github.com/shrimbly/willienotwilly/internal/errors"
)

// voteRequest uses pointers so missing fields are distinguishable from zero
// values; the body carries no enforced schema, so presence and type are
// checked explicitly.
type voteRequest struct {
	Model        *string  `json:"model"`
	FirstNotRock *float64 `json:"first_not_rock"`
}

func (s *Server) handleSubmitVote(c echo.Context) error {
	if s.app == nil {
		return apperrors.UnavailableError("voting is not configured")
	}

	var req voteRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperrors.ValidationError("invalid input: model and first_not_rock are required")
	}
	if req.Model == nil || req.FirstNotRock == nil {
		return apperrors.ValidationError("invalid input: model and first_not_rock are required")
	}

	subject := domain.Subject(*req.Model)
	voterIP := voterIdentity(c.Request())
	ctx := c.Request().Context()

	_, err := s.app.SubmitVote(ctx, subject, *req.FirstNotRock, voterIP)
	switch {
	case err == nil:
		// fall through to success response
	case errors.Is(err, domain.ErrUnknownSubject):
		return apperrors.ValidationError("invalid input: unknown model").WithField("model", *req.Model)
	case errors.Is(err, domain.ErrValueNotIntegral):
		return apperrors.ValidationError("invalid input: first_not_rock must be a whole number")
	case errors.Is(err, domain.ErrValueOutOfRange):
		return apperrors.ValidationError(fmt.Sprintf("invalid input: first_not_rock must be between %d and %d", domain.MinValue, domain.MaxValue))
	case errors.Is(err, domain.ErrRateLimited):
		policy := s.app.Policy()
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
		return apperrors.RateLimitedError(fmt.Sprintf(
			"Rate limit exceeded. You can only vote %d times per %s.", policy.MaxVotes, policy.Window))
	default:
		return apperrors.InternalError(s.redacted("Failed to submit vote", err), err)
	}

	if err := c.JSON(http.StatusOK, map[string]bool{"success": true}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSubjectStats(c echo.Context) error {
	if s.app == nil {
		return apperrors.UnavailableError("voting is not configured")
	}

	subject := domain.Subject(c.Param("subject"))
	ctx := c.Request().Context()

	stats, err := s.app.Stats(ctx, subject)
	if errors.Is(err, domain.ErrUnknownSubject) {
		return apperrors.NotFoundError("unknown model").WithField("model", string(subject))
	}
	if err != nil {
		return apperrors.InternalError(s.redacted("Failed to load vote stats", err), err)
	}

	if err := c.JSON(http.StatusOK, stats); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleAllStats(c echo.Context) error {
	if s.app == nil {
		return apperrors.UnavailableError("voting is not configured")
	}

	stats, err := s.app.StatsAll(c.Request().Context())
	if err != nil {
		return apperrors.InternalError(s.redacted("Failed to load vote stats", err), err)
	}

	if err := c.JSON(http.StatusOK, stats); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type subscribeRequest struct {
	Email *string `json:"email"`
}

func (s *Server) handleSubscribe(c echo.Context) error {
	if s.app == nil {
		return apperrors.UnavailableError("subscriptions are not configured")
	}

	var req subscribeRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return apperrors.ValidationError("email is required")
	}
	if req.Email == nil || *req.Email == "" {
		return apperrors.ValidationError("email is required")
	}

	email := strings.ToLower(strings.TrimSpace(*req.Email))
	if !emailPattern.MatchString(email) {
		return apperrors.ValidationError("invalid email format")
	}

	err := s.app.Subscribe(c.Request().Context(), email)
	switch {
	case err == nil:
		// fall through to success response
	case errors.Is(err, domain.ErrDuplicateSubscriber):
		return apperrors.ConflictError("Email already subscribed")
	default:
		return apperrors.InternalError(s.redacted("Failed to subscribe", err), err)
	}

	if err := c.JSON(http.StatusOK, map[string]bool{"success": true}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// redacted hides backend error detail from clients in production; the full
// cause is always logged server-side by the error middleware.
func (s *Server) redacted(message string, cause error) string {
	if s.config.IsProduction() {
		return message
	}
	return fmt.Sprintf("%s: %v", message, cause)
}
