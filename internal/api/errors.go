package api

import (
	"errors"
	"net/http"

	"vaultcast/internal/notebook"
	"vaultcast/internal/services"
	"vaultcast/internal/workflow"
)

// ErrEpisodeNotReady is returned when exporting audio before a job is ready.
var ErrEpisodeNotReady = errors.New("episode audio not ready")

// StatusCode maps a service error to the HTTP status reported to clients.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound), errors.Is(err, notebook.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, notebook.ErrJobActive), errors.Is(err, ErrEpisodeNotReady):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// notFound tags a missing notebook so callers map it to 404.
func notFound(err error) error {
	if errors.Is(err, notebook.ErrNotFound) && !errors.Is(err, services.ErrNotFound) {
		return services.Wrap(services.ErrNotFound, "api", "notebook", "", err)
	}
	return err
}
