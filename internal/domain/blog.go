package domain

import "time"

// BlogPost is an editorial article. Published=false is the draft state.
type BlogPost struct {
	Base
	Title         string       `gorm:"size:255;not null" json:"title"`
	Slug          string       `gorm:"size:255;not null;unique" json:"slug"`
	Excerpt       *string      `gorm:"type:text" json:"excerpt,omitempty"`
	Content       string       `gorm:"type:text;not null" json:"content"`
	FeaturedImage *string      `gorm:"size:1024" json:"featured_image,omitempty"`
	Tags          []string     `gorm:"type:text;serializer:json" json:"tags"`
	Category      BlogCategory `gorm:"size:30;not null;index" json:"category"`
	Author        string       `gorm:"size:100;not null" json:"author"`
	Published     bool         `gorm:"not null;default:false;index" json:"published"`
	PublishedAt   *time.Time   `json:"published_at,omitempty"`
	ViewCount     int64        `gorm:"not null;default:0" json:"view_count"`
}

// TableName specifies the table name for BlogPost
func (BlogPost) TableName() string {
	return "blog_posts"
}

func (BlogPost) Kind() Kind {
	return KindBlogPost
}

// BlogComment is a reader comment on a post, held for moderation
type BlogComment struct {
	Base
	PostID      uint             `gorm:"not null;index" json:"post_id"`
	AuthorName  string           `gorm:"size:100;not null" json:"author_name"`
	AuthorEmail string           `gorm:"size:255;not null" json:"author_email"`
	Content     string           `gorm:"type:text;not null" json:"content"`
	Moderation  ModerationStatus `gorm:"size:20;not null;index" json:"moderation"`
}

// TableName specifies the table name for BlogComment
func (BlogComment) TableName() string {
	return "blog_comments"
}

func (BlogComment) Kind() Kind {
	return KindBlogComment
}

func (c *BlogComment) ModerationState() ModerationStatus {
	return c.Moderation
}

func (c *BlogComment) SetModeration(s ModerationStatus) {
	c.Moderation = s
}

// PostInput is the admin payload for a new post
type PostInput struct {
	Title         string       `json:"title" validate:"required,max=255"`
	Excerpt       *string      `json:"excerpt,omitempty" validate:"omitempty,max=1000"`
	Content       string       `json:"content" validate:"required"`
	FeaturedImage *string      `json:"featured_image,omitempty" validate:"omitempty,max=1024"`
	Tags          []string     `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	Category      BlogCategory `json:"category" validate:"required,category"`
	Author        string       `json:"author" validate:"required,max=100"`
	Published     bool         `json:"published"`
}

func (in *PostInput) Normalize() {
	trim(&in.Title, &in.Content, &in.Author)
	in.Excerpt = trimOptional(in.Excerpt)
	in.FeaturedImage = trimOptional(in.FeaturedImage)
	in.Tags = normalizeTags(in.Tags)
}

// PostPatch carries the editable fields of a post; nil means unchanged.
// The slug is not editable.
type PostPatch struct {
	Title         *string       `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Excerpt       *string       `json:"excerpt,omitempty" validate:"omitempty,max=1000"`
	Content       *string       `json:"content,omitempty" validate:"omitempty,min=1"`
	FeaturedImage *string       `json:"featured_image,omitempty" validate:"omitempty,max=1024"`
	Tags          *[]string     `json:"tags,omitempty" validate:"omitempty,max=20,dive,required,max=50"`
	Category      *BlogCategory `json:"category,omitempty" validate:"omitempty,category"`
	Author        *string       `json:"author,omitempty" validate:"omitempty,min=1,max=100"`
}

func (p *PostPatch) Normalize() {
	p.Title = trimOptional(p.Title)
	p.Content = trimOptional(p.Content)
	p.Author = trimOptional(p.Author)
	if p.Tags != nil {
		tags := normalizeTags(*p.Tags)
		p.Tags = &tags
	}
}

// Apply copies the set fields onto post
func (p PostPatch) Apply(post *BlogPost) {
	if p.Title != nil {
		post.Title = *p.Title
	}
	if p.Excerpt != nil {
		post.Excerpt = p.Excerpt
	}
	if p.Content != nil {
		post.Content = *p.Content
	}
	if p.FeaturedImage != nil {
		post.FeaturedImage = p.FeaturedImage
	}
	if p.Tags != nil {
		post.Tags = *p.Tags
	}
	if p.Category != nil {
		post.Category = *p.Category
	}
	if p.Author != nil {
		post.Author = *p.Author
	}
}

// CommentInput is the public comment payload
type CommentInput struct {
	AuthorName  string `json:"author_name" validate:"required,min=2,max=100"`
	AuthorEmail string `json:"author_email" validate:"required,email"`
	Content     string `json:"content" validate:"required,max=2000"`
}

func (in *CommentInput) Normalize() {
	trim(&in.AuthorName, &in.Content)
	in.AuthorEmail = normalizeEmail(in.AuthorEmail)
}
