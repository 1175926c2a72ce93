package models

// Media kinds, derived from the file extension at upload time.
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
)

// Media is an image or video attached to a post. A media row is owned by
// exactly one post and is removed when that post is deleted.
type Media struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PostID uint   `gorm:"index;not null" json:"post_id"`
	URL    string `gorm:"size:400;not null" json:"url"` // /static/uploads/... path
	Kind   string `gorm:"size:10;not null" json:"kind"` // image or video
}
