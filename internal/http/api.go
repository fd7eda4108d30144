package http

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readersforest/internal/database"
	"github.com/mrlokans/readersforest/internal/entities"
)

// BookResponse is the public JSON view of a catalog entry.
type BookResponse struct {
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	Year         int     `json:"year"`
	ISBN         string  `json:"isbn"`
	ReviewCount  int64   `json:"review_count"`
	AverageScore float64 `json:"average_score"`
}

// APIController serves the read-only ISBN lookup surface.
type APIController struct {
	books BookFinder
}

func NewAPIController(books BookFinder) *APIController {
	return &APIController{books: books}
}

func (a *APIController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/api/:isbn", a.GetBook)
	router.GET("/api/:isbn/author", a.GetAuthor)
	router.GET("/api/:isbn/year", a.GetYear)
}

func (a *APIController) GetBook(c *gin.Context) {
	book, ok := a.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, BookResponse{
		Title:        book.Title,
		Author:       book.Author,
		Year:         book.Year,
		ISBN:         book.ISBN,
		ReviewCount:  book.ReviewCount,
		AverageScore: math.Round(book.AverageRating*100) / 100,
	})
}

func (a *APIController) GetAuthor(c *gin.Context) {
	book, ok := a.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"isbn": book.ISBN, "author": book.Author})
}

func (a *APIController) GetYear(c *gin.Context) {
	book, ok := a.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"isbn": book.ISBN, "year": book.Year})
}

// lookup resolves the :isbn parameter or writes the error response.
func (a *APIController) lookup(c *gin.Context) (*entities.BookWithStats, bool) {
	isbn := normalizeISBN(c.Param("isbn"))
	if isbn == "" {
		respondBadRequest(c, "isbn is required")
		return nil, false
	}

	book, err := a.books.FindByISBN(c.Request.Context(), isbn)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondNotFound(c, errUnknownISBN)
			return nil, false
		}
		respondInternalError(c, err, "api lookup")
		return nil, false
	}
	return book, true
}
