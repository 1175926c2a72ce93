package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lukewen/studyblog/models"
	"github.com/lukewen/studyblog/services"
	"github.com/lukewen/studyblog/utils"
)

// AdminController handles the mutating admin surface: create, edit and delete
// posts, orchestrating the upload handler and the post service. All routes
// here sit behind middleware.AdminRequired.
type AdminController struct {
	posts    *services.PostService
	uploads  *services.UploadService
	mediaCap int
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(posts *services.PostService, uploads *services.UploadService, mediaCap int) *AdminController {
	return &AdminController{posts: posts, uploads: uploads, mediaCap: mediaCap}
}

// Dashboard lists all posts newest-first for the admin overview.
func (a *AdminController) Dashboard(ctx *gin.Context) {
	posts, err := a.posts.List(services.ListFilter{})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list posts")
		return
	}
	utils.Success(ctx, gin.H{"posts": posts})
}

// NewForm returns the data the create form needs.
func (a *AdminController) NewForm(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"topics": topicList()})
}

// Create handles the multipart submission of a new post with attached media.
func (a *AdminController) Create(ctx *gin.Context) {
	title := utils.SanitizeStrict(ctx.PostForm("title"))
	topic := ctx.PostForm("topic")
	content := utils.Sanitize(ctx.PostForm("content"))

	saved, warnings := a.saveFiles(mediaFiles(ctx), a.mediaCap)

	input := services.CreatePostInput{Title: title, Topic: topic, Content: content}
	for _, u := range saved {
		input.Media = append(input.Media, services.NewMedia{URL: u.URL, Kind: u.Kind})
	}

	post, err := a.posts.Create(input)
	if err != nil {
		a.discard(saved)
		a.fail(ctx, err, 50041, "failed to create post")
		return
	}

	utils.InvalidateByPrefix("cache:posts")
	utils.Success(ctx, gin.H{"post": post, "warnings": warnings})
}

// EditForm returns the current post payload for the edit form.
func (a *AdminController) EditForm(ctx *gin.Context) {
	post, ok := a.loadPost(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, gin.H{"post": post, "topics": topicList()})
}

// Update applies an edit submission: field changes, opt-in slug regeneration,
// per-media deletions and appended uploads.
func (a *AdminController) Update(ctx *gin.Context) {
	post, ok := a.loadPost(ctx)
	if !ok {
		return
	}

	title := utils.SanitizeStrict(ctx.PostForm("title"))
	topic := ctx.PostForm("topic")
	content := utils.Sanitize(ctx.PostForm("content"))
	regenerate := formFlag(ctx.PostForm("regenerate_slug"))
	deleteIDs := formIDs(ctx.PostFormArray("delete_media"))

	// Appends share the per-post cap with media that will remain after the
	// requested deletions.
	current, err := a.posts.MediaCount(post.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to load post media")
		return
	}
	remaining := current - countOwned(post.Media, deleteIDs)
	budget := a.mediaCap - remaining
	if budget < 0 {
		budget = 0
	}
	saved, warnings := a.saveFiles(mediaFiles(ctx), budget)

	input := services.UpdatePostInput{
		Title:          title,
		Topic:          topic,
		Content:        content,
		RegenerateSlug: regenerate,
		DeleteMediaIDs: deleteIDs,
	}
	for _, u := range saved {
		input.AddMedia = append(input.AddMedia, services.NewMedia{URL: u.URL, Kind: u.Kind})
	}

	updated, removed, err := a.posts.Update(post.ID, input)
	if err != nil {
		a.discard(saved)
		a.fail(ctx, err, 50042, "failed to update post")
		return
	}

	for _, m := range removed {
		a.uploads.RemoveURL(m.URL)
	}

	utils.InvalidateByPrefix("cache:posts")
	utils.Success(ctx, gin.H{"post": updated, "warnings": warnings})
}

// Delete removes a post; its media rows cascade and the stored files are
// cleaned up best-effort.
func (a *AdminController) Delete(ctx *gin.Context) {
	post, ok := a.loadPost(ctx)
	if !ok {
		return
	}

	deleted, err := a.posts.Delete(post.ID)
	if err != nil {
		a.fail(ctx, err, 50043, "failed to delete post")
		return
	}

	for _, m := range deleted.Media {
		a.uploads.RemoveURL(m.URL)
	}

	utils.InvalidateByPrefix("cache:posts")
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// saveFiles stores up to budget uploads. Unsupported or oversized files are
// skipped with a warning; files beyond the budget are dropped with a warning.
func (a *AdminController) saveFiles(files []*multipart.FileHeader, budget int) ([]services.Upload, []string) {
	var saved []services.Upload
	var warnings []string

	for i, header := range files {
		if len(saved) >= budget {
			dropped := len(files) - i
			warnings = append(warnings, fmt.Sprintf("media limit reached, %d file(s) dropped", dropped))
			break
		}
		f, err := header.Open()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: could not read upload", header.Filename))
			continue
		}
		upload, err := a.uploads.Save(header.Filename, f)
		f.Close()
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnsupportedFile):
				warnings = append(warnings, fmt.Sprintf("%s: unsupported file type", header.Filename))
			case errors.Is(err, services.ErrFileTooLarge):
				warnings = append(warnings, fmt.Sprintf("%s: file too large", header.Filename))
			default:
				if utils.Sugar != nil {
					utils.Sugar.Errorf("upload save failed: %v", err)
				}
				warnings = append(warnings, fmt.Sprintf("%s: failed to store file", header.Filename))
			}
			continue
		}
		saved = append(saved, upload)
	}
	return saved, warnings
}

func (a *AdminController) discard(saved []services.Upload) {
	for _, u := range saved {
		a.uploads.Remove(u)
	}
}

func (a *AdminController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
		return nil, false
	}
	post, err := a.posts.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
		} else {
			utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to load post")
		}
		return nil, false
	}
	return post, true
}

func (a *AdminController) fail(ctx *gin.Context, err error, code int, msg string) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		utils.ErrorData(ctx, http.StatusBadRequest, 40001, "validation failed", gin.H{"fields": vErr.Fields})
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
	default:
		if utils.Sugar != nil {
			utils.Sugar.Errorf("%s: %v", msg, err)
		}
		utils.Error(ctx, http.StatusInternalServerError, code, msg)
	}
}

func mediaFiles(ctx *gin.Context) []*multipart.FileHeader {
	form, err := ctx.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File["media"]
}

func formFlag(v string) bool {
	return v == "1" || v == "true" || v == "on"
}

// formIDs parses the submitted ids, dropping malformed values and duplicates.
// Duplicates would otherwise count against the media budget more than once.
func formIDs(values []string) []uint {
	seen := make(map[uint]struct{}, len(values))
	var ids []uint
	for _, v := range values {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			continue
		}
		if _, dup := seen[uint(id)]; dup {
			continue
		}
		seen[uint(id)] = struct{}{}
		ids = append(ids, uint(id))
	}
	return ids
}

func countOwned(media []models.Media, ids []uint) int {
	owned := make(map[uint]struct{}, len(media))
	for _, m := range media {
		owned[m.ID] = struct{}{}
	}
	n := 0
	for _, id := range ids {
		if _, ok := owned[id]; ok {
			n++
		}
	}
	return n
}
