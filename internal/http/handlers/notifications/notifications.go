package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/vodpipeline/mediaconvert-trigger/internal/http/middleware"
	"github.com/vodpipeline/mediaconvert-trigger/internal/trigger"
	"github.com/vodpipeline/mediaconvert-trigger/internal/utils/response"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// Receive accepts an S3-compatible bucket notification and runs it as one
// batch. Once the body is valid it answers 200 even when some submissions
// failed, so the sender does not redeliver the whole batch; per-object
// results are in the response body.
// @Summary Receive a bucket notification
// @Description Submit one transcoding job per notification record
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param notification body notification.Info true "S3-compatible bucket notification"
// @Success 200 {object} response.Response "Batch handled"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Failure 429 {object} response.Response "Rate limit exceeded"
// @Router /v1/notifications [post]
func Receive(h trigger.BatchHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sender, _ := middleware.GetSubjectFromContext(r.Context())

		var info notification.Info
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&info)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		refs := trigger.FromMinioNotification(info)
		for _, ref := range refs {
			if err := validate.Struct(ref); err != nil {
				var ve validator.ValidationErrors
				if errors.As(err, &ve) {
					response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
					return
				}
				response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
				return
			}
		}

		if len(refs) == 0 {
			response.WriteJSON(w, http.StatusOK, response.RequestOK("No records", nil))
			return
		}

		// submissions must not be cut short if the sender hangs up
		ctx := context.WithoutCancel(r.Context())
		report := h.Handle(ctx, refs)

		slog.Info("Notification handled",
			slog.String("sender", sender),
			slog.String("batch_id", report.BatchID),
			slog.Int("objects", len(refs)),
			slog.Int("submitted", report.Submitted()))

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Batch handled", report.Summary()))
	}
}
