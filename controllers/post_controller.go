package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lukewen/studyblog/models"
	"github.com/lukewen/studyblog/services"
	"github.com/lukewen/studyblog/utils"
)

// PostController serves the public read side: the grouped index, per-topic
// listings and post detail by slug.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

const recentPerTopic = 3

// Index returns the newest posts grouped by topic.
func (p *PostController) Index(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes("cache:posts:index"); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	latestByTopic := gin.H{}
	for _, topic := range models.Topics {
		posts, err := p.posts.List(services.ListFilter{Topic: topic, Limit: recentPerTopic})
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to list posts")
			return
		}
		latestByTopic[topic] = posts
	}

	payload := gin.H{
		"topics":          topicList(),
		"latest_by_topic": latestByTopic,
	}
	cacheWrapped("cache:posts:index", payload)
	utils.Success(ctx, payload)
}

// ListByTopic returns all posts for one topic, newest first.
func (p *PostController) ListByTopic(ctx *gin.Context) {
	topic := ctx.Param("topic")
	if !models.ValidTopic(topic) {
		utils.Error(ctx, http.StatusNotFound, 40402, "topic not found")
		return
	}

	key := "cache:posts:topic=" + topic
	if b, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	posts, err := p.posts.List(services.ListFilter{Topic: topic})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to list posts")
		return
	}

	payload := gin.H{
		"topic": gin.H{"slug": topic, "name": models.TopicNames[topic]},
		"posts": posts,
	}
	cacheWrapped(key, payload)
	utils.Success(ctx, payload)
}

// GetBySlug returns a single post by its slug.
func (p *PostController) GetBySlug(ctx *gin.Context) {
	slug := ctx.Param("slug")

	key := "cache:posts:slug=" + slug
	if b, ok := utils.CacheGetBytes(key); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	post, err := p.posts.GetBySlug(slug)
	if err != nil {
		if err == services.ErrNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to load post")
		return
	}

	payload := gin.H{"post": post}
	cacheWrapped(key, payload)
	utils.Success(ctx, payload)
}

func topicList() []gin.H {
	list := make([]gin.H, 0, len(models.Topics))
	for _, t := range models.Topics {
		list = append(list, gin.H{"slug": t, "name": models.TopicNames[t]})
	}
	return list
}

// cacheWrapped stores the full success envelope so cache hits can be served
// verbatim, matching what utils.Success would have written.
func cacheWrapped(key string, payload interface{}) {
	utils.CacheSetJSON(key, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, time.Hour)
}
