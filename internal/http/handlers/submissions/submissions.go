package submissions

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/vodpipeline/mediaconvert-trigger/internal/storage"
	"github.com/vodpipeline/mediaconvert-trigger/internal/types"
	"github.com/vodpipeline/mediaconvert-trigger/internal/utils/response"
)

var validate = validator.New()

// List returns ledger rows for ?bucket=&key=&limit=
// @Summary List submissions
// @Description List recorded job submissions for a source bucket, optionally one object
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param bucket query string true "Source bucket"
// @Param key query string false "Object key"
// @Param limit query int false "Maximum rows (default 50, max 500)"
// @Success 200 {object} response.Response "Submissions fetched successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /v1/submissions [get]
func List(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := types.SubmissionQuery{
			Bucket: r.URL.Query().Get("bucket"),
			Key:    r.URL.Query().Get("key"),
		}

		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("limit must be a number")))
				return
			}
			q.Limit = limit
		}

		if err := validate.Struct(q); err != nil {
			var ve validator.ValidationErrors
			if errors.As(err, &ve) {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		rows, err := store.ListSubmissions(r.Context(), q)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Submissions fetched successfully", rows))
	}
}
