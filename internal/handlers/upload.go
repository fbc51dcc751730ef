package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelform/funnelform-backend/internal/platform/cloudinary"
)

type UploadHandler struct {
	cloudinaryClient cloudinary.Client
}

func NewUploadHandler(cloudinaryClient cloudinary.Client) *UploadHandler {
	return &UploadHandler{cloudinaryClient: cloudinaryClient}
}

// Signature hands the dashboard a short-lived signed payload for direct
// browser uploads. The API secret never leaves the server.
func (uh *UploadHandler) Signature(c *gin.Context) {
	if _, ok := callerFromContext(c); !ok {
		return
	}
	if uh.cloudinaryClient == nil {
		RespondError(c, http.StatusServiceUnavailable, "uploads_disabled", errors.New("image uploads are not configured"))
		return
	}
	folder := c.DefaultQuery("folder", "funnelform")
	RespondOK(c, uh.cloudinaryClient.SignUpload(folder))
}
