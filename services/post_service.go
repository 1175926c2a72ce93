package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/lukewen/studyblog/models"
)

// PostService implements post lifecycle operations over the relational store.
// All multi-row writes run inside a single transaction so post fields and
// media changes are never partially visible.
type PostService struct {
	db *gorm.DB
}

// NewPostService creates a PostService on the given database handle.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// NewMedia is a stored upload to attach to a post.
type NewMedia struct {
	URL  string
	Kind string
}

// CreatePostInput is the typed input for Create, validated before anything
// reaches the store.
type CreatePostInput struct {
	Title   string
	Topic   string
	Content string
	Media   []NewMedia
}

// UpdatePostInput is the typed input for Update. Slug regeneration is opt-in;
// DeleteMediaIDs not owned by the post are ignored.
type UpdatePostInput struct {
	Title          string
	Topic          string
	Content        string
	RegenerateSlug bool
	DeleteMediaIDs []uint
	AddMedia       []NewMedia
}

// ListFilter narrows List results.
type ListFilter struct {
	Topic string // empty means all topics
	Limit int    // 0 means no limit
}

func validatePostFields(title, topic, content string) error {
	fields := map[string]string{}
	if strings.TrimSpace(title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(content) == "" {
		fields["content"] = "content is required"
	}
	if !models.ValidTopic(topic) {
		fields["topic"] = "unknown topic"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Create validates the input, derives a unique slug from the title and
// persists the post row followed by its media rows in one transaction.
func (s *PostService) Create(input CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(input.Title, input.Topic, input.Content); err != nil {
		return nil, err
	}

	post := models.Post{
		Title:   strings.TrimSpace(input.Title),
		Topic:   input.Topic,
		Content: input.Content,
	}
	for _, m := range input.Media {
		post.Media = append(post.Media, models.Media{URL: m.URL, Kind: m.Kind})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		base := Slugify(post.Title)
		if base == "" {
			base = randomSlug()
		}
		slug, err := ensureUniqueSlug(tx, base, 0)
		if err != nil {
			return err
		}
		post.Slug = slug
		// Media rows ride along; gorm inserts them after the post row exists.
		return tx.Create(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Update applies field changes, owned-media deletions and media additions
// atomically. The slug is recomputed only when input.RegenerateSlug is set,
// excluding the post's own row from the uniqueness probe. It returns the
// updated post and the media rows that were deleted.
func (s *PostService) Update(id uint, input UpdatePostInput) (*models.Post, []models.Media, error) {
	if err := validatePostFields(input.Title, input.Topic, input.Content); err != nil {
		return nil, nil, err
	}

	post, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	owned := make(map[uint]models.Media, len(post.Media))
	for _, m := range post.Media {
		owned[m.ID] = m
	}
	// Each media row is removed at most once even when an id repeats.
	var removed []models.Media
	seen := make(map[uint]struct{}, len(input.DeleteMediaIDs))
	for _, mid := range input.DeleteMediaIDs {
		if _, dup := seen[mid]; dup {
			continue
		}
		seen[mid] = struct{}{}
		if m, ok := owned[mid]; ok {
			removed = append(removed, m)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"title":   strings.TrimSpace(input.Title),
			"topic":   input.Topic,
			"content": input.Content,
		}
		if input.RegenerateSlug {
			base := Slugify(input.Title)
			if base == "" {
				base = randomSlug()
			}
			slug, err := ensureUniqueSlug(tx, base, post.ID)
			if err != nil {
				return err
			}
			updates["slug"] = slug
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
			return err
		}
		for _, m := range removed {
			if err := tx.Where("post_id = ?", post.ID).Delete(&models.Media{}, m.ID).Error; err != nil {
				return err
			}
		}
		for _, m := range input.AddMedia {
			row := models.Media{PostID: post.ID, URL: m.URL, Kind: m.Kind}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	return updated, removed, nil
}

// Delete removes the post row and cascades to its media rows. The deleted
// post, media included, is returned so callers can clean stored files.
func (s *PostService) Delete(id uint) (*models.Post, error) {
	post, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Media{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// List returns posts newest-first, optionally filtered by topic and capped at
// the N most recent.
func (s *PostService) List(filter ListFilter) ([]models.Post, error) {
	q := s.db.Preload("Media").Order("created_at DESC, id DESC")
	if filter.Topic != "" {
		q = q.Where("topic = ?", filter.Topic)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// GetBySlug returns the post with the given slug, or ErrNotFound.
func (s *PostService) GetBySlug(slug string) (*models.Post, error) {
	var post models.Post
	if err := s.db.Preload("Media").Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// GetByID returns the post with the given id, or ErrNotFound.
func (s *PostService) GetByID(id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.Preload("Media").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// MediaCount returns how many media rows a post currently owns.
func (s *PostService) MediaCount(postID uint) (int, error) {
	var count int64
	if err := s.db.Model(&models.Media{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
