package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/streamvault/archiver/internal/index"
	"github.com/streamvault/archiver/internal/model"
	"github.com/streamvault/archiver/pkg/response"
)

type VideoHandler struct {
	builder   *index.Builder
	validator *validator.Validate
}

func NewVideoHandler(builder *index.Builder, v *validator.Validate) *VideoHandler {
	return &VideoHandler{
		builder:   builder,
		validator: v,
	}
}

// VideoIndexRequest indexes one downloaded video.
type VideoIndexRequest struct {
	YoutubeID string `json:"youtube_id" validate:"required"`
	VidType   string `json:"vid_type" validate:"omitempty,oneof=videos shorts streams"`
}

// Get handles GET /api/videos/:videoId
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return response.ValidationError(c, "Video ID is required", nil)
	}

	doc, err := h.builder.GetVideo(c.Context(), videoID)
	if err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, doc)
}

// Index handles POST /api/videos
func (h *VideoHandler) Index(c *fiber.Ctx) error {
	var req VideoIndexRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	doc, err := h.builder.IndexNewVideo(c.Context(), req.YoutubeID, index.BuildOptions{
		VideoType: model.VideoType(req.VidType),
	})
	if err != nil {
		if errors.Is(err, index.ErrNoMetadata) {
			return response.ValidationError(c, "No metadata available for video", nil)
		}
		if errors.Is(err, index.ErrMediaNotFound) {
			return response.ValidationError(c, "No local media file for video", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, doc)
}

// Delete handles DELETE /api/videos/:videoId
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return response.ValidationError(c, "Video ID is required", nil)
	}

	if err := h.builder.DeleteVideo(c.Context(), videoID); err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}
