package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lukewen/studyblog/models"
)

// Slugify derives a URL-safe slug candidate from a post title: characters
// outside the alphanumeric/space/hyphen set are stripped, the rest is
// lowercased and runs of whitespace or hyphens collapse into single hyphens.
// Returns "" when nothing survives; callers substitute a random token.
func Slugify(title string) string {
	cleaned := make([]rune, 0, len(title))
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' || r == '-' {
			cleaned = append(cleaned, r)
		}
	}
	parts := strings.FieldsFunc(string(cleaned), func(r rune) bool {
		return r == ' ' || r == '-'
	})
	return strings.Join(parts, "-")
}

// randomSlug returns a fallback slug for titles that reduce to nothing.
func randomSlug() string {
	return uuid.New().String()
}

// ensureUniqueSlug resolves slug collisions by probing existing rows and
// appending -2, -3, ... until a free slug is found. excludeID skips the post's
// own row during edits. Two concurrent creates can still race to the same
// candidate; the unique index on posts.slug is the backstop.
func ensureUniqueSlug(tx *gorm.DB, base string, excludeID uint) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		var count int64
		q := tx.Model(&models.Post{}).Where("slug = ?", candidate)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
