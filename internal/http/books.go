package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mrlokans/readersforest/internal/auth"
	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/database/reviews"
	"github.com/mrlokans/readersforest/internal/entities"
	"github.com/mrlokans/readersforest/internal/metrics"
	"github.com/mrlokans/readersforest/internal/ratings"
)

const (
	MsgAlreadyReviewed = "You have already reviewed this book."
	MsgInvalidRating   = "Please pick a rating between 1 and 5."
	MsgReviewSaved     = "Thanks! Your review has been saved."
)

// Flasher carries one-shot messages across a redirect.
type Flasher interface {
	SetFlash(ctx context.Context, message string)
	PopFlash(ctx context.Context) string
}

// BooksController serves the search, book detail and review pages.
type BooksController struct {
	books    BookFinder
	reviews  ReviewStore
	ratings  ratings.Client
	flash    Flasher
	renderer auth.Renderer
	metrics  *metrics.Metrics
}

func NewBooksController(books BookFinder, reviews ReviewStore, ratingsClient ratings.Client, flash Flasher, renderer auth.Renderer, m *metrics.Metrics) *BooksController {
	if ratingsClient == nil {
		ratingsClient = ratings.DisabledClient{}
	}
	return &BooksController{
		books:    books,
		reviews:  reviews,
		ratings:  ratingsClient,
		flash:    flash,
		renderer: renderer,
		metrics:  m,
	}
}

// Home sends signed-in users to search and everyone else to the login page.
func (bc *BooksController) Home(c *gin.Context) {
	if auth.IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/search")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (bc *BooksController) SearchPage(c *gin.Context) {
	bc.renderer.Render(c, http.StatusOK, "search.html", gin.H{
		"Title":     "Search",
		"Books":     []entities.BookWithStats{},
		"CSRFField": auth.CSRFTokenField(c),
	})
}

func (bc *BooksController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("user_search"))

	results, err := bc.books.Search(c.Request.Context(), query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Search failed")
		bc.renderer.Render(c, http.StatusInternalServerError, "search.html", gin.H{
			"Title":     "Search",
			"Message":   auth.MsgTryAgain,
			"Query":     query,
			"CSRFField": auth.CSRFTokenField(c),
		})
		return
	}

	bc.renderer.Render(c, http.StatusOK, "search.html", gin.H{
		"Title":     "Search",
		"Query":     query,
		"Searched":  true,
		"Books":     results,
		"CSRFField": auth.CSRFTokenField(c),
	})
}

// FindByISBN redirects the exact-ISBN form to the book page.
func (bc *BooksController) FindByISBN(c *gin.Context) {
	isbn := normalizeISBN(c.PostForm("book_isbn"))
	if isbn == "" {
		c.Redirect(http.StatusSeeOther, "/search")
		return
	}
	c.Redirect(http.StatusSeeOther, bookPath(isbn))
}

func (bc *BooksController) BookPage(c *gin.Context) {
	ctx := c.Request.Context()
	isbn := normalizeISBN(c.Param("isbn"))

	book, err := bc.books.FindByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			bc.renderer.Render(c, http.StatusNotFound, "notfound.html", gin.H{
				"Title": "Not found",
				"ISBN":  isbn,
			})
			return
		}
		log.Error().Err(err).Str("isbn", isbn).Msg("Failed to load book")
		c.String(http.StatusInternalServerError, "Error loading book")
		return
	}

	bookReviews, err := bc.reviews.ListReviews(ctx, book.ID)
	if err != nil {
		log.Error().Err(err).Uint("book_id", book.ID).Msg("Failed to load reviews")
		c.String(http.StatusInternalServerError, "Error loading reviews")
		return
	}

	submitted, err := bc.reviews.AlreadyReviewed(ctx, book.ID, auth.GetUserID(c))
	if err != nil {
		log.Error().Err(err).Uint("book_id", book.ID).Msg("Failed to check review status")
		c.String(http.StatusInternalServerError, "Error loading reviews")
		return
	}

	data := gin.H{
		"Title":           book.Title,
		"Book":            book,
		"Reviews":         bookReviews,
		"ReviewSubmitted": submitted,
		"CSRFField":       auth.CSRFTokenField(c),
	}
	if bc.flash != nil {
		data["Message"] = bc.flash.PopFlash(ctx)
	}
	if rating := bc.externalRating(ctx, isbn); rating != nil {
		data["ExternalRating"] = rating
	}

	bc.renderer.Render(c, http.StatusOK, "book.html", data)
}

// externalRating is best effort: failures are logged and counted, and the
// page renders without it.
func (bc *BooksController) externalRating(ctx context.Context, isbn string) *ratings.Rating {
	rating, err := bc.ratings.Lookup(ctx, isbn)
	switch {
	case err == nil:
		return rating
	case errors.Is(err, ratings.ErrDisabled), errors.Is(err, ratings.ErrNoRating):
		return nil
	default:
		log.Warn().Err(err).Str("isbn", isbn).Msg("External rating unavailable")
		bc.metrics.RatingsFailure()
		return nil
	}
}

func (bc *BooksController) SubmitReview(c *gin.Context) {
	ctx := c.Request.Context()
	isbn := normalizeISBN(c.PostForm("book_isbn"))

	book, err := bc.books.FindByISBN(ctx, isbn)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			bc.renderer.Render(c, http.StatusNotFound, "notfound.html", gin.H{
				"Title": "Not found",
				"ISBN":  isbn,
			})
			return
		}
		log.Error().Err(err).Str("isbn", isbn).Msg("Failed to load book")
		c.String(http.StatusInternalServerError, "Error loading book")
		return
	}

	rating, err := strconv.Atoi(strings.TrimSpace(c.PostForm("user_rating")))
	if err != nil {
		rating = 0
	}

	_, err = bc.reviews.AddReview(ctx, book.ID, auth.GetUserID(c), rating, strings.TrimSpace(c.PostForm("user_review")))
	switch {
	case err == nil:
		bc.metrics.ReviewSubmitted()
		bc.setFlash(ctx, MsgReviewSaved)
	case errors.Is(err, reviews.ErrAlreadyReviewed):
		bc.setFlash(ctx, MsgAlreadyReviewed)
	case errors.Is(err, reviews.ErrInvalidRating):
		bc.setFlash(ctx, MsgInvalidRating)
	default:
		log.Error().Err(err).Uint("book_id", book.ID).Msg("Failed to save review")
		bc.setFlash(ctx, auth.MsgTryAgain)
	}

	c.Redirect(http.StatusSeeOther, bookPath(book.ISBN))
}

func (bc *BooksController) setFlash(ctx context.Context, message string) {
	if bc.flash != nil {
		bc.flash.SetFlash(ctx, message)
	}
}

func bookPath(isbn string) string {
	return "/book/" + url.PathEscape(isbn)
}
