package handlers

import (
	"errors"

	"github.com/RMahshie/rfscope/internal/repository"
	"github.com/RMahshie/rfscope/pkg/models"
	"github.com/danielgtaylor/huma/v2"
)

// apiError maps domain error kinds onto HTTP status codes.
func apiError(msg string, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		return huma.Error400BadRequest(msg, err)
	case errors.Is(err, models.ErrInvalidFormat):
		return huma.Error422UnprocessableEntity(msg, err)
	case errors.Is(err, repository.ErrNotFound):
		return huma.Error404NotFound(msg, err)
	}
	return huma.Error500InternalServerError(msg, err)
}
