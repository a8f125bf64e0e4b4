// Shared-folder HTTP handler.
//
//   - GET /shared/{token}/{path}   (list a folder or download a file)
//
// The token is the one handed out by the get-link command. Folders are
// returned as JSON listings; files are streamed with range support.
package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/chat-archiver/internal/storage"
)

// ListingResponse is the JSON listing of a shared folder.
type ListingResponse struct {
	Path    string          `json:"path"    example:"/image"`
	Entries []storage.Entry `json:"entries"`
}

// inlineTypes are streamed inline; everything else is sent as an attachment.
var inlineTypes = []string{"image/", "video/", "audio/"}

// BrowseShare godoc
// @ID          browseShare
// @Summary     Browse a shared conversation folder
// @Description Lists a folder (JSON) or downloads a file from the folder shared by the get-link command.
// @Tags        Shared
// @Produce     json,octet-stream
//
// @Param       token  path  string  true  "Share token"  format(uuid)
// @Param       path   path  string  true  "Path inside the shared folder, '/' for the root"
//
// @Success     200  {object}  handlers.ListingResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid path"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown token or path"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /shared/{token}/{path} [get]
func (h *Handlers) BrowseShare(c *gin.Context) {
	scope, err := h.shares.ResolveShare(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.shareError(c, err)
		return
	}

	rel := strings.Trim(c.Param("path"), "/")
	fi, err := h.shares.Stat(scope, rel)
	if err != nil {
		h.shareError(c, err)
		return
	}

	if fi.IsDir() {
		entries, err := h.shares.List(scope, rel)
		if err != nil {
			h.shareError(c, err)
			return
		}
		ok(c, http.StatusOK, ListingResponse{Path: "/" + rel, Entries: entries})
		return
	}

	f, err := h.shares.Open(scope, rel)
	if err != nil {
		h.shareError(c, err)
		return
	}
	defer f.Close()

	name := path.Base(rel)
	disposition := "attachment"
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		c.Header("Content-Type", ct)
		for _, p := range inlineTypes {
			if strings.HasPrefix(ct, p) {
				disposition = "inline"
				break
			}
		}
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	http.ServeContent(c.Writer, c.Request, name, fi.ModTime(), f)
}

func (h *Handlers) shareError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "not found")
	case errors.Is(err, storage.ErrBadPath):
		fail(c, http.StatusBadRequest, ErrCodeInvalidPath, "invalid path")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
