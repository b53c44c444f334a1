package controllers

import (
	"log/slog"
	"net/http"

	"inkpost/app/auth"
	"inkpost/app/models"
	"inkpost/app/render"
	"inkpost/app/services"

	"github.com/gorilla/mux"
)

var (
	editPostStatus = statusOverrides{
		services.ErrNotFound:     http.StatusBadRequest,
		services.ErrUnauthorized: http.StatusForbidden,
	}
	deletePostStatus = statusOverrides{
		services.ErrUnauthorized: http.StatusUnauthorized,
	}
)

// PostController handles HTTP requests for blog posts
type PostController struct {
	postService *services.PostService
	logger      *slog.Logger
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService) *PostController {
	return &PostController{
		postService: postService,
		logger:      slog.Default(),
	}
}

// WithLogger sets the logger for the post controller
func (pc *PostController) WithLogger(l *slog.Logger) *PostController {
	tmp := *pc
	tmp.logger = l
	return &tmp
}

// Create handles a multipart post submission with its thumbnail.
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	in, ok := pc.readPostForm(w, r)
	if !ok {
		return
	}

	post, err := pc.postService.CreatePost(r.Context(), models.CreatePostInput{
		Title:       in.Title,
		Category:    in.Category,
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
	}, identity.ID)
	if err != nil {
		respondError(w, r, pc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusOK, post)
}

// Index handles listing all posts
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListPosts(r.Context())
	if err != nil {
		respondError(w, r, pc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusOK, posts)
}

// Show handles displaying a single post
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	post, err := pc.postService.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, pc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusOK, post)
}

// ByCategory lists the posts of one category, newest first.
func (pc *PostController) ByCategory(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListPostsByCategory(r.Context(), mux.Vars(r)["category"])
	if err != nil {
		respondError(w, r, pc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusOK, posts)
}

// ByUser lists the posts written by one author, newest first.
func (pc *PostController) ByUser(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListPostsByCreator(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, pc.logger, err, nil)
		return
	}
	render.JSON(w, http.StatusOK, posts)
}

// Edit handles editing an existing post. The thumbnail part is optional.
func (pc *PostController) Edit(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	in, ok := pc.readPostForm(w, r)
	if !ok {
		return
	}

	post, err := pc.postService.EditPost(r.Context(), mux.Vars(r)["id"], models.EditPostInput{
		Title:       in.Title,
		Category:    in.Category,
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
	}, identity.ID)
	if err != nil {
		respondError(w, r, pc.logger, err, editPostStatus)
		return
	}
	render.JSON(w, http.StatusOK, post)
}

// Delete handles deleting a post and its thumbnail
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := pc.postService.DeletePost(r.Context(), id, identity.ID); err != nil {
		respondError(w, r, pc.logger, err, deletePostStatus)
		return
	}
	render.JSON(w, http.StatusOK, map[string]string{
		"message": "Post " + id + " deleted successfully.",
	})
}

type postForm struct {
	Title       string         `json:"title"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Thumbnail   *models.Upload `json:"-"`
}

// readPostForm reads the text fields and the thumbnail part. It writes the
// error response itself and reports false when the request is unusable.
func (pc *PostController) readPostForm(w http.ResponseWriter, r *http.Request) (postForm, bool) {
	var in postForm
	if err := parseMultipart(w, r, services.ThumbnailLimit); err != nil {
		rejectBody(w, r, pc.logger, err)
		return in, false
	}
	if err := decodeInput(w, r, &in); err != nil {
		rejectBody(w, r, pc.logger, err)
		return in, false
	}
	thumbnail, err := readUpload(r, "thumbnail", services.ThumbnailLimit)
	if err != nil {
		rejectBody(w, r, pc.logger, err)
		return in, false
	}
	in.Thumbnail = thumbnail
	return in, true
}
