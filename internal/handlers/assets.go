package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"asset-uploader/internal/models"
	"asset-uploader/internal/services"
)

const assetIDParam = "id"

// maxTimeoutSeconds is the largest timeout that still fits in a time.Duration.
const maxTimeoutSeconds = math.MaxInt64 / int64(time.Second)

type AssetsHandler struct {
	assets          *services.AssetService
	uploadExpires   time.Duration
	downloadExpires time.Duration
	log             zerolog.Logger
}

func NewAssetsHandler(assets *services.AssetService, uploadExpires, downloadExpires time.Duration, log zerolog.Logger) *AssetsHandler {
	return &AssetsHandler{
		assets:          assets,
		uploadExpires:   uploadExpires,
		downloadExpires: downloadExpires,
		log:             log.With().Str("component", "assets-handler").Logger(),
	}
}

// CreateAsset godoc
// @Summary     Create asset
// @Description Registers a new asset and returns a signed URL the client uploads the bytes to with PUT
// @Tags        assets
// @Produce     json
// @Success     200 {object} models.CreateAssetResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /asset [post]
func (h *AssetsHandler) CreateAsset(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := h.assets.CreateAsset(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}

	uploadURL, err := h.assets.GetUploadURL(ctx, id, h.uploadExpires)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().Str("asset_id", id.String()).Msg("created asset")
	c.JSON(http.StatusOK, models.CreateAssetResponse{
		ID:        id.String(),
		UploadURL: uploadURL,
	})
}

// CompleteAsset godoc
// @Summary     Complete asset upload
// @Description Marks the asset as uploaded once its bytes are present in the object store
// @Tags        assets
// @Accept      json
// @Produce     json
// @Param       id   path string                      true "Asset ID"
// @Param       body body models.UpdateAssetRequest true "Requested status"
// @Success     200
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /asset/{id} [put]
func (h *AssetsHandler) CompleteAsset(c *gin.Context) {
	id, ok := parseAssetID(c)
	if !ok {
		return
	}

	var req models.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}
	if req.Status == nil || *req.Status != string(models.AssetStatusUploaded) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: `Status must be "uploaded"`})
		return
	}

	ctx := c.Request.Context()
	asset, err := h.assets.GetAsset(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.assets.CompleteAsset(ctx, *asset); err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Info().Str("asset_id", id.String()).Msg("completed upload of asset")
	c.Status(http.StatusOK)
}

// GetAsset godoc
// @Summary     Get asset download URL
// @Description Returns a signed download URL for an uploaded asset
// @Tags        assets
// @Produce     json
// @Param       id      path  string true  "Asset ID"
// @Param       timeout query int    false "Download URL lifetime in seconds"
// @Success     200 {object} models.GetAssetResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /asset/{id} [get]
func (h *AssetsHandler) GetAsset(c *gin.Context) {
	expiry, err := parseTimeout(c.Query("timeout"), h.downloadExpires)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid timeout", Message: err.Error()})
		return
	}

	id, ok := parseAssetID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	asset, err := h.assets.GetAsset(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if asset.Status != models.AssetStatusUploaded {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "asset " + id.String() + " " + services.ErrUploadNotVerified.Error()})
		return
	}

	downloadURL, err := h.assets.GetDownloadURL(ctx, id, expiry)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.GetAssetResponse{DownloadURL: downloadURL})
}

// DeleteAsset godoc
// @Summary     Delete asset
// @Description Removes the asset bytes and record. Succeeds whether or not the asset exists
// @Tags        assets
// @Param       id path string true "Asset ID"
// @Success     200
// @Router      /asset/{id} [delete]
func (h *AssetsHandler) DeleteAsset(c *gin.Context) {
	id, err := uuid.Parse(c.Param(assetIDParam))
	if err != nil {
		// Nothing can be stored under a key that is not a UUID.
		c.Status(http.StatusOK)
		return
	}

	h.assets.DeleteAsset(c.Request.Context(), id)
	h.log.Info().Str("asset_id", id.String()).Msg("deleted asset")
	c.Status(http.StatusOK)
}

// respondError maps service errors onto HTTP responses.
func (h *AssetsHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, services.ErrUploadNotVerified), errors.Is(err, services.ErrAlreadyCompleted):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal server error",
			Message: err.Error(),
		})
	}
}

func parseAssetID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(assetIDParam))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid asset id"})
		return uuid.Nil, false
	}
	return id, true
}

// parseTimeout reads a whole number of seconds. An empty value yields def.
func parseTimeout(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if seconds <= 0 {
		return 0, errors.New("timeout must be a positive number of seconds")
	}
	if int64(seconds) > maxTimeoutSeconds {
		return 0, fmt.Errorf("timeout must not exceed %d seconds", maxTimeoutSeconds)
	}
	return time.Duration(seconds) * time.Second, nil
}
