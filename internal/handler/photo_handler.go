package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/lemore-app/lemore-api/pkg/errors"
	"github.com/lemore-app/lemore-api/pkg/response"
	"github.com/lemore-app/lemore-api/pkg/storage"
)

type tokenParser interface {
	Parse(token string, allowExpired bool) (photoID, relPath string, expiresAt time.Time, err error)
}

// PhotoHandler serves stored photo files behind signed, expiring URLs. The
// token itself authorises access, so these routes sit outside the JWT
// middleware: AI vision calls fetch the same URLs without a user session.
type PhotoHandler struct {
	signer tokenParser
	store  *storage.LocalStorage
}

// NewPhotoHandler constructs the handler.
func NewPhotoHandler(signer tokenParser, store *storage.LocalStorage) *PhotoHandler {
	return &PhotoHandler{signer: signer, store: store}
}

// Serve godoc
// @Summary Download a photo via its signed URL
// @Tags Photos
// @Produce image/*
// @Param token path string true "Signed photo token"
// @Success 200 {file} binary
// @Router /photos/{token} [get]
func (h *PhotoHandler) Serve(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "photo not found"))
		return
	}
	c.File(h.store.Path(relPath))
}
