package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/api"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func intakeError(msg string) error {
	return utils.NewValidationError("%s", msg)
}

// errorHandler writes every error as {"error": msg}
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := mapError(err)
	goapp.Log.WithLevel(logLevel(code)).Err(err).Str("path", c.Path()).Int("code", code).Send()
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, api.ErrorResult{Error: msg})
	}
	if err != nil {
		goapp.Log.Error().Err(err).Msg("can't write error")
	}
}

func logLevel(code int) zerolog.Level {
	if code >= http.StatusInternalServerError {
		return zerolog.ErrorLevel
	}
	return zerolog.WarnLevel
}

func mapError(err error) (int, string) {
	var ve *utils.ValidationError
	var ce *utils.ConfigurationError
	var se *utils.ServiceError
	var pe *utils.ParseError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, utils.ErrNotFound):
		return http.StatusNotFound, "Transcript not found"
	case errors.Is(err, utils.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.As(err, &ce):
		return http.StatusInternalServerError, ce.Error()
	case errors.As(err, &pe):
		return http.StatusInternalServerError, pe.Error()
	case errors.As(err, &se):
		return http.StatusInternalServerError, se.Error()
	case errors.As(err, &he):
		return he.Code, fmt.Sprintf("%v", he.Message)
	}
	return http.StatusInternalServerError, "Internal server error"
}
