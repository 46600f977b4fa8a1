package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mediagate/service/internal/media"
	appMiddleware "github.com/mediagate/service/internal/middleware"
	"github.com/mediagate/service/internal/response"
	"github.com/mediagate/service/internal/storage"
)

const (
	// formOverhead is the body allowance for multipart boundaries and fields.
	formOverhead = 1 << 20
	maxFieldSize = 1 << 10
)

// Handler holds HTTP handlers for the upload endpoints.
type Handler struct {
	svc         *Service
	maxFileSize int64
	expose      bool
	logger      *slog.Logger
}

// NewHandler creates a new upload Handler. expose controls whether internal
// error messages reach the client.
func NewHandler(svc *Service, maxFileSize int64, expose bool, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, maxFileSize: maxFileSize, expose: expose, logger: logger}
}

// form is a parsed multipart upload body.
type form struct {
	file   *File
	fields map[string]string
}

// UploadProfile godoc
//
//	@Summary		Upload profile picture
//	@Description	Stores an image under the caller's profile namespace and returns its public URL.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"Image (jpeg, png, webp, gif), max 10MB"
//	@Success		200		{object}	response.UploadResult
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Failure		401		{object}	response.ErrorEnvelope
//	@Failure		500		{object}	response.ErrorEnvelope
//	@Router			/api/upload/profile [post]
func (h *Handler) UploadProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := appMiddleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing or invalid authorization header")
		return
	}

	f, err := h.parseForm(w, r)
	if err == nil && f.file == nil {
		err = ErrMissingFile
	}
	if err != nil {
		h.writeError(w, r, media.Profile(), err)
		return
	}

	url, err := h.svc.UploadProfile(r.Context(), id, *f.file)
	if err != nil {
		h.writeError(w, r, media.Profile(), err)
		return
	}

	response.OK(w, response.UploadResult{URL: url})
}

// UploadPost godoc
//
//	@Summary		Upload post media
//	@Description	Stores an image or video under the caller's post namespace and returns its public URL. Any owner field in the body is ignored.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file		formData	file	true	"Image or video, max 10MB"
//	@Param			mediaType	formData	string	true	"image or video"	Enums(image, video)
//	@Param			postId		formData	string	false	"Post the media belongs to"
//	@Success		200			{object}	response.UploadResult
//	@Failure		400			{object}	response.ErrorEnvelope
//	@Failure		401			{object}	response.ErrorEnvelope
//	@Failure		500			{object}	response.ErrorEnvelope
//	@Router			/api/upload/post [post]
func (h *Handler) UploadPost(w http.ResponseWriter, r *http.Request) {
	id, ok := appMiddleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "Missing or invalid authorization header")
		return
	}

	postIntent, _ := media.Post("")

	f, err := h.parseForm(w, r)
	if err == nil && f.file == nil {
		err = ErrMissingFile
	}
	if err != nil {
		h.writeError(w, r, postIntent, err)
		return
	}

	category, ok := media.ParseCategory(f.fields["mediaType"])
	if !ok {
		h.writeError(w, r, postIntent, ErrInvalidMediaType)
		return
	}

	url, err := h.svc.UploadPost(r.Context(), id, f.fields["postId"], category, *f.file)
	if err != nil {
		h.writeError(w, r, postIntent, err)
		return
	}

	response.OK(w, response.UploadResult{URL: url})
}

// parseForm streams the multipart body, buffering the "file" part up to the
// size limit and collecting small text fields. A "file" part without a
// filename is a text field, not an upload.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (*form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+formOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, ErrInvalidMultipart
	}

	f := &form{fields: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, bodyError(err)
		}

		name := part.FormName()
		isFile := name == "file" && part.FileName() != ""
		switch {
		case isFile && f.file == nil:
			data, err := io.ReadAll(io.LimitReader(part, h.maxFileSize+1))
			if err != nil {
				return nil, bodyError(err)
			}
			if int64(len(data)) > h.maxFileSize {
				return nil, ErrFileTooLarge
			}
			f.file = &File{
				Data:         data,
				ContentType:  part.Header.Get("Content-Type"),
				OriginalName: part.FileName(),
			}
		case isFile:
			// Only the first file part is used.
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, bodyError(err)
			}
		default:
			value, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
			if err != nil {
				return nil, bodyError(err)
			}
			if len(value) > maxFieldSize {
				return nil, ErrInvalidMultipart
			}
			if _, seen := f.fields[name]; !seen {
				f.fields[name] = strings.TrimSpace(string(value))
			}
		}
		part.Close()
	}
	return f, nil
}

// bodyError maps a body read failure to a domain error.
func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrFileTooLarge
	}
	return ErrInvalidMultipart
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, intent media.Intent, err error) {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		response.BadRequest(w, "File too large", fmt.Sprintf("Maximum file size is %dMB", h.maxFileSize>>20))
	case errors.Is(err, ErrMissingFile):
		response.BadRequest(w, "No file provided", "")
	case errors.Is(err, ErrInvalidMultipart):
		response.BadRequest(w, "Invalid multipart body", "")
	case errors.Is(err, ErrInvalidMediaType):
		response.BadRequest(w, "Invalid mediaType", "mediaType must be 'image' or 'video'")
	case errors.Is(err, media.ErrInvalidPostID):
		response.BadRequest(w, "Invalid postId", "postId may only contain letters, digits, '-' and '_'")
	case errors.Is(err, media.ErrUnsupportedType):
		response.BadRequest(w, "Invalid file type", "Allowed types: "+strings.Join(allowedTypes(intent), ", "))
	case errors.Is(err, media.ErrCategoryMismatch) && intent.Name() == "post":
		response.BadRequest(w, "File type does not match mediaType", "")
	case errors.Is(err, media.ErrCategoryMismatch):
		response.BadRequest(w, "Invalid file type", "Only images are allowed")
	case errors.Is(err, storage.ErrUploadFailed):
		h.logger.Error("upload failed",
			"request_id", middleware.GetReqID(r.Context()),
			"intent", intent.Name(),
			"error", err,
		)
		response.InternalError(w, r, "Upload failed", err, h.expose)
	default:
		h.logger.Error("upload error",
			"request_id", middleware.GetReqID(r.Context()),
			"intent", intent.Name(),
			"error", err,
		)
		response.InternalError(w, r, "Internal server error", err, h.expose)
	}
}

func allowedTypes(intent media.Intent) []string {
	types := media.AllowedTypes(media.Image)
	if intent.Name() == "post" {
		types = append(types, media.AllowedTypes(media.Video)...)
	}
	return types
}
