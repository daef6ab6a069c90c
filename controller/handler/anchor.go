package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"meta-anchor/controller/respond"
	"meta-anchor/model"
	"meta-anchor/service/anchor_service"

	"github.com/gin-gonic/gin"
)

// maxFileSize upper bound of an attached file
const maxFileSize = 32 << 20

// AnchorService submission and provenance operations
type AnchorService interface {
	Submit(ctx context.Context, req *anchor_service.SubmitRequest) (*anchor_service.AnchorResult, error)
	Retrieve(ctx context.Context, fingerprint string) (*anchor_service.RetrieveResult, error)
	Verify(ctx context.Context, hash string) (*anchor_service.VerifyResult, error)
}

// AnchorHandler anchor handler
type AnchorHandler struct {
	anchorService AnchorService
}

// NewAnchorHandler create anchor handler instance
func NewAnchorHandler(anchorService AnchorService) *AnchorHandler {
	return &AnchorHandler{anchorService: anchorService}
}

// Submit store metadata and an optional file, anchor and reward
// @Summary      Submit content
// @Description  Store metadata (and an optional file) in the content store, anchor the metadata fingerprint on the ledger and reward the submitter. 207 means anchored but the reward failed.
// @Tags         Anchor
// @Accept       multipart/form-data
// @Produce      json
// @Param        user_id      formData  string  true   "Registered user ID"
// @Param        user_wallet  formData  string  true   "Wallet of the user"
// @Param        metadata     formData  string  true   "Metadata JSON object"
// @Param        file         formData  file    false  "File to attach"
// @Success      200  {object}  respond.Response{data=respond.SubmitResponse}
// @Success      207  {object}  respond.Response{data=respond.SubmitResponse}  "Anchored, reward failed"
// @Failure      400  {object}  respond.Response
// @Failure      401  {object}  respond.Response
// @Failure      409  {object}  respond.Response
// @Failure      500  {object}  respond.Response
// @Router       /submit [post]
func (h *AnchorHandler) Submit(c *gin.Context) {
	userID := strings.TrimSpace(c.PostForm("user_id"))
	userWallet := strings.TrimSpace(c.PostForm("user_wallet"))
	rawMetadata := c.PostForm("metadata")
	if userID == "" || userWallet == "" || rawMetadata == "" {
		respond.InvalidParam(c, "Missing required parameters: user_id, user_wallet and metadata")
		return
	}

	metadata, err := model.ParseMetadata([]byte(rawMetadata))
	if err != nil {
		respond.InvalidParam(c, "metadata must be a JSON object: "+err.Error())
		return
	}

	var content []byte
	file, header, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		if header.Size > maxFileSize {
			respond.InvalidParam(c, "file is too large")
			return
		}
		content, err = io.ReadAll(io.LimitReader(file, maxFileSize+1))
		if err != nil {
			respond.ServerError(c, "failed to read file")
			return
		}
		if len(content) > maxFileSize {
			respond.InvalidParam(c, "file is too large")
			return
		}
		if content == nil {
			content = []byte{}
		}
	} else if err != http.ErrMissingFile {
		respond.InvalidParam(c, "invalid file upload: "+err.Error())
		return
	}

	result, err := h.anchorService.Submit(c.Request.Context(), &anchor_service.SubmitRequest{
		UserID:     userID,
		UserWallet: userWallet,
		Metadata:   metadata,
		File:       content,
	})
	if anchor_service.IsPartialSuccess(result, err) {
		respond.PartialSuccess(c, respond.ToSubmitResponse(result), err)
		return
	}
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Success(c, respond.ToSubmitResponse(result))
}

// Retrieve metadata, anchor data and file of a fingerprint
// @Summary      Retrieve content
// @Description  Resolve the anchor transaction of a fingerprint and return its metadata; file_data holds the base64 file when metadata references one
// @Tags         Anchor
// @Produce      json
// @Param        hash  path      string  true  "Metadata fingerprint"
// @Success      200   {object}  respond.Response{data=respond.RetrieveResponse}
// @Failure      404   {object}  respond.Response
// @Failure      500   {object}  respond.Response
// @Router       /retrieve/{hash} [get]
func (h *AnchorHandler) Retrieve(c *gin.Context) {
	hash := c.Param("hash")
	if hash == "" {
		respond.InvalidParam(c, "hash is required")
		return
	}

	result, err := h.anchorService.Retrieve(c.Request.Context(), hash)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Success(c, respond.ToRetrieveResponse(result))
}

// Verify check that a fingerprint or transaction is anchored
// @Summary      Verify anchor
// @Description  Accepts a metadata fingerprint or an anchor transaction hash (0x + 64 hex)
// @Tags         Anchor
// @Produce      json
// @Param        hash  path      string  true  "Fingerprint or transaction hash"
// @Success      200   {object}  respond.Response{data=respond.VerifyResponse}
// @Failure      404   {object}  respond.Response
// @Failure      500   {object}  respond.Response
// @Router       /verify/{hash} [get]
func (h *AnchorHandler) Verify(c *gin.Context) {
	hash := c.Param("hash")
	if hash == "" {
		respond.InvalidParam(c, "hash is required")
		return
	}

	result, err := h.anchorService.Verify(c.Request.Context(), hash)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.Success(c, respond.ToVerifyResponse(result))
}
