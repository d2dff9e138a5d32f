package catalog

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"furniture-storefront/internal/domain"
	"furniture-storefront/internal/store"
)

// ReviewForm is the public review form.
type ReviewForm struct {
	CustomerName string `json:"customer_name" validate:"required"`
	Rating       int    `json:"rating" validate:"min=1,max=5"`
	Comment      string `json:"comment" validate:"required"`
}

// DefaultReviewForm is the blank form: no name, five stars, no comment.
func DefaultReviewForm() ReviewForm {
	return ReviewForm{Rating: 5}
}

// SubmitResult is what the reviews page shows after a submission. Form is the
// cleared form on success and the submitted one on failure.
type SubmitResult struct {
	Success bool       `json:"success"`
	Notice  string     `json:"notice"`
	Form    ReviewForm `json:"form"`
}

// Supported notice languages; the first is the site default.
var noticeLanguages = []language.Tag{language.Amharic, language.English}

var languageMatcher = language.NewMatcher(noticeLanguages)

type notices struct {
	success string
	failure string
}

var reviewNotices = map[language.Tag]notices{
	language.Amharic: {
		success: "እናመሰግናለን! ግምገማዎ ከፈቀድ በኋላ ይታያል።",
		failure: "ይቅርታ፣ ግምገማዎን ማስገባት አልተሳካም። እባክዎ ደግመው ይሞክሩ።",
	},
	language.English: {
		success: "Thank you! Your review will appear once it has been approved.",
		failure: "Sorry, we could not submit your review. Please try again.",
	},
}

// MatchLanguage picks the notice language for an Accept-Language header,
// defaulting to Amharic.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return noticeLanguages[0]
	}
	_, index, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return noticeLanguages[0]
	}
	return noticeLanguages[index]
}

// ReviewSubmitter handles public review submissions. New reviews are inserted
// without a product and without approval, so they stay hidden until approved.
type ReviewSubmitter struct {
	reviews  store.ReviewStorer
	validate *validator.Validate
	log      zerolog.Logger
}

// NewReviewSubmitter creates a new ReviewSubmitter.
func NewReviewSubmitter(reviews store.ReviewStorer, log zerolog.Logger) *ReviewSubmitter {
	return &ReviewSubmitter{reviews: reviews, validate: validator.New(), log: log}
}

// Submit validates and stores form, answering in lang.
func (s *ReviewSubmitter) Submit(ctx context.Context, form ReviewForm, lang language.Tag) SubmitResult {
	text, ok := reviewNotices[lang]
	if !ok {
		text = reviewNotices[noticeLanguages[0]]
	}

	if err := s.validate.Struct(form); err != nil {
		s.log.Info().Err(err).Msg("review form rejected")
		return SubmitResult{Notice: text.failure, Form: form}
	}

	review := domain.NewReview{
		ProductID:    nil,
		CustomerName: form.CustomerName,
		Rating:       form.Rating,
		Comment:      form.Comment,
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		s.log.Error().Err(err).Msg("failed to store review")
		return SubmitResult{Notice: text.failure, Form: form}
	}

	return SubmitResult{Success: true, Notice: text.success, Form: DefaultReviewForm()}
}
