package domain

import "time"

// BlogPost is an article shown on the blog page. Public views only ever load
// rows with Published set.
type BlogPost struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	CoverImageURL string    `json:"cover_image_url"`
	Author        string    `json:"author"`
	Category      string    `json:"category"`
	Published     bool      `json:"published"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Review is a customer review. New reviews stay invisible to the public pages
// until an out-of-band step sets Approved.
type Review struct {
	ID           string    `json:"id"`
	ProductID    *string   `json:"product_id"`
	CustomerName string    `json:"customer_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	Approved     bool      `json:"approved"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewReview is the insert payload for a public review submission.
// Approved is not part of it so the store default applies.
type NewReview struct {
	ProductID    *string `json:"product_id"`
	CustomerName string  `json:"customer_name"`
	Rating       int     `json:"rating"`
	Comment      string  `json:"comment"`
}

// ContactSubmission mirrors the contact_submissions table. Nothing in this
// service writes it.
type ContactSubmission struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
