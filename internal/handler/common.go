// Package handler implements the HTTP endpoints. Each handler follows the
// same sequence: bind and validate the DTO, bound the store calls with a
// short timeout, run the engine or repository call, map the error onto an
// HTTP status. Cache failures never surface here; only store, lock and
// audit failures do.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/minsu-dev/factory-ops/internal/attendance"
	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// Validator adapts go-playground/validator to Echo's Validator interface.
type Validator struct{ v *validator.Validate }

func NewValidator() *Validator { return &Validator{v: validator.New()} }

func (val *Validator) Validate(i interface{}) error {
	if err := val.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// reqCtx bounds a request's store calls the way every handler does.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// fail maps domain errors onto HTTP responses. Unknown errors become 500
// after being logged by Echo.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, attendance.ErrNoClockInRecord):
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, attendance.ErrAlreadyClockedIn),
		errors.Is(err, attendance.ErrAlreadyClockedOut):
		return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
	case errors.Is(err, cache.ErrLockNotObtained):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"message": "처리 중입니다. 잠시 후 다시 시도해주세요."})
	case errors.Is(err, cache.ErrLockerNotReady), errors.Is(err, cache.ErrSessionStoreDown):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "서비스 준비 중입니다."})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
}

// Health responds to liveness probes.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "pong")
}
