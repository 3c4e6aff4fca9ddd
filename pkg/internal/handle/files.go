package handle

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/gradevault/pkg/internal/service"
	"github.com/yeisme/gradevault/pkg/internal/types"
)

// Grades GET /grades.
func (h *Handlers) Grades() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, types.GradesResponse{Grades: h.files.Grades(), ChunkSize: h.files.ChunkSize()})
	}
}

// List GET /files/:grade，按上传时间倒序.
func (h *Handlers) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri types.GradeURI
		if err := c.ShouldBindUri(&uri); err != nil {
			respondError(c, "invalid grade", err)
			return
		}

		records, err := h.files.List(c.Request.Context(), uri.Grade)
		if err != nil {
			respondError(c, "list files failed", err)
			return
		}

		resp := types.ListFilesResponse{Grade: uri.Grade, Count: len(records), Files: make([]types.FileResponse, 0, len(records))}
		for _, rec := range records {
			resp.Files = append(resp.Files, types.NewFileResponse(rec))
		}

		c.JSON(http.StatusOK, resp)
	}
}

// Upload POST /files/:grade，multipart 字段 files 可以出现多次.
// 文件逐个上传，单个失败不影响其他文件；全部失败时返回第一个错误对应的状态码.
func (h *Handlers) Upload() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri types.GradeURI
		if err := c.ShouldBindUri(&uri); err != nil {
			respondError(c, "invalid grade", err)
			return
		}

		if err := c.Request.ParseMultipartForm(h.maxMultipart); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form: " + err.Error()})
			return
		}

		headers := c.Request.MultipartForm.File["files"]
		if len(headers) == 0 {
			headers = c.Request.MultipartForm.File["file"]
		}

		if len(headers) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no files in form field \"files\""})
			return
		}

		uploads := make([]service.UploadFile, 0, len(headers))
		for _, fh := range headers {
			uploads = append(uploads, uploadFile(fh))
		}

		l := logger(c)
		resp := types.UploadFilesResponse{Grade: uri.Grade, Total: len(uploads)}

		var firstErr error

		results := h.files.UploadMany(c.Request.Context(), uri.Grade, uploads, func(p service.Progress) {
			resp.Completed = p.Done
			l.Debug().Str("grade", uri.Grade).Int("done", p.Done).Int("total", p.Total).Str("name", p.Result.Name).Msg("upload progress")
		})

		for _, r := range results {
			item := types.UploadResultItem{Name: r.Name}

			if r.Err != nil {
				item.Error = r.Err.Error()
				if firstErr == nil {
					firstErr = r.Err
				}
			} else {
				item.ID = r.Record.ID
				item.TotalChunks = r.Record.TotalChunks
				resp.Succeeded++
			}

			resp.Results = append(resp.Results, item)
		}

		if resp.Succeeded == 0 {
			status := StatusOf(firstErr)
			l.Warn().Err(firstErr).Str("grade", uri.Grade).Int("files", resp.Total).Msg("all uploads failed")
			c.JSON(status, resp)

			return
		}

		c.JSON(http.StatusCreated, resp)
	}
}

func uploadFile(fh *multipart.FileHeader) service.UploadFile {
	ct := fh.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(ct); err == nil {
		ct = parsed
	}

	return service.UploadFile{
		Name:        fh.Filename,
		ContentType: ct,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Meta GET /files/:grade/:id.
func (h *Handlers) Meta() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri types.FileURI
		if err := c.ShouldBindUri(&uri); err != nil {
			respondError(c, "invalid file reference", err)
			return
		}

		rec, err := h.files.Get(c.Request.Context(), uri.Grade, uri.ID)
		if err != nil {
			respondError(c, "get file failed", err)
			return
		}

		c.JSON(http.StatusOK, types.NewFileResponse(rec))
	}
}

// Download GET /files/:grade/:id/download，返回原始字节.
func (h *Handlers) Download() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri types.FileURI
		if err := c.ShouldBindUri(&uri); err != nil {
			respondError(c, "invalid file reference", err)
			return
		}

		data, rec, err := h.files.Download(c.Request.Context(), uri.Grade, uri.ID)
		if err != nil {
			respondError(c, "download failed", err)
			return
		}

		ct := rec.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}

		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.Name}))
		c.Header("X-Download-Count", strconv.FormatInt(rec.DownloadCount, 10))
		c.Data(http.StatusOK, ct, data)
	}
}

// Content GET /files/:grade/:id/content，返回 data URI.
func (h *Handlers) Content() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri types.FileURI
		if err := c.ShouldBindUri(&uri); err != nil {
			respondError(c, "invalid file reference", err)
			return
		}

		dataURI, rec, err := h.files.DataURI(c.Request.Context(), uri.Grade, uri.ID)
		if err != nil {
			respondError(c, "content failed", err)
			return
		}

		c.JSON(http.StatusOK, types.ContentResponse{FileResponse: types.NewFileResponse(rec), DataURI: dataURI})
	}
}

// Verify GET /files/:grade/:id/verify，只校验不计下载.
func (h *Handlers) Verify() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri types.FileURI
		if err := c.ShouldBindUri(&uri); err != nil {
			respondError(c, "invalid file reference", err)
			return
		}

		rec, err := h.files.Verify(c.Request.Context(), uri.Grade, uri.ID)
		if err != nil {
			respondError(c, "verify failed", err)
			return
		}

		c.JSON(http.StatusOK, types.VerifyResponse{FileResponse: types.NewFileResponse(rec), Verified: true})
	}
}

// Delete DELETE /files/:grade/:id.
func (h *Handlers) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		var uri types.FileURI
		if err := c.ShouldBindUri(&uri); err != nil {
			respondError(c, "invalid file reference", err)
			return
		}

		if err := h.files.Delete(c.Request.Context(), uri.Grade, uri.ID); err != nil {
			respondError(c, "delete failed", err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
