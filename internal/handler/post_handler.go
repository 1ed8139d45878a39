package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"postfeed/internal/models"
	"postfeed/internal/service"
)

const multipartMemory = 8 << 20

type PostsGetResponse struct {
	Message    string        `json:"message"`
	Posts      []models.Post `json:"posts"`
	TotalItems int           `json:"totalItems"`
	Page       int           `json:"page"`
	PerPage    int           `json:"perPage"`
	TotalPages int           `json:"totalPages"`
}

type PostResponse struct {
	Message string       `json:"message"`
	Post    *models.Post `json:"post"`
}

type ImageResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath,omitempty"`
}

func (h *Handlers) GetPosts(w http.ResponseWriter, r *http.Request) {
	// a missing or malformed page means the first page
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	feed, err := h.PostService.FetchPage(r.Context(), UserIDFromContext(r.Context()), page)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, PostsGetResponse{
		Message:    "Fetched posts successfully.",
		Posts:      feed.Posts,
		TotalItems: feed.TotalItems,
		Page:       feed.Page,
		PerPage:    feed.PerPage,
		TotalPages: feed.TotalPages,
	}, http.StatusOK)
}

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]

	post, err := h.PostService.GetPost(r.Context(), UserIDFromContext(r.Context()), postID)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, PostResponse{Message: "Post fetched.", Post: post}, http.StatusOK)
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	input, cleanup, ok := h.readPostForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	post, err := h.PostService.CreatePost(r.Context(), UserIDFromContext(r.Context()), input)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, PostResponse{Message: "Post created successfully!", Post: post}, http.StatusCreated)
}

func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]

	input, cleanup, ok := h.readPostForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	post, err := h.PostService.UpdatePost(r.Context(), UserIDFromContext(r.Context()), postID, input)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, PostResponse{Message: "Post updated!", Post: post}, http.StatusOK)
}

func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["postId"]

	err := h.PostService.DeletePost(r.Context(), UserIDFromContext(r.Context()), postID)
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, MessageResponse{Message: "Deleted post."}, http.StatusOK)
}

func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	upload, closeFile, err := formUpload(r, "image")
	if err != nil {
		WriteError(w, "Ошибка чтения файла", http.StatusBadRequest)
		return
	}
	if upload == nil {
		writeSuccess(w, ImageResponse{Message: "No file provided!"}, http.StatusOK)
		return
	}
	defer closeFile()

	ref, err := h.PostService.UploadImage(r.Context(), UserIDFromContext(r.Context()), upload, r.FormValue("oldPath"))
	if err != nil {
		writeServiceError(w, r, h.Logger, err)
		return
	}

	writeSuccess(w, ImageResponse{Message: "File stored.", FilePath: ref}, http.StatusCreated)
}

// readPostForm parses the multipart post form. On failure it has already
// written the response.
func (h *Handlers) readPostForm(w http.ResponseWriter, r *http.Request) (service.PostInput, func(), bool) {
	if !h.parseMultipart(w, r) {
		return service.PostInput{}, nil, false
	}

	upload, closeFile, err := formUpload(r, "image")
	if err != nil {
		r.MultipartForm.RemoveAll()
		WriteError(w, "Ошибка чтения файла", http.StatusBadRequest)
		return service.PostInput{}, nil, false
	}

	input := service.PostInput{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		ImageURL: r.FormValue("imageUrl"),
		Image:    upload,
	}

	cleanup := func() {
		if closeFile != nil {
			closeFile()
		}
		r.MultipartForm.RemoveAll()
	}

	return input, cleanup, true
}

func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.Cfg.MaxUploadSize)

	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, "Файл слишком большой, максимум "+humanize.Bytes(uint64(tooLarge.Limit)), http.StatusRequestEntityTooLarge)
		return false
	}

	WriteError(w, "Неверный формат формы", http.StatusBadRequest)
	return false
}

// formUpload returns nil without error when the field has no file.
func formUpload(r *http.Request, field string) (*service.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	return uploadFrom(file, header), func() { file.Close() }, nil
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) *service.Upload {
	return &service.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		File:     file,
	}
}
