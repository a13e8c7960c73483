package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/dailyrag/answer"
)

// Asker answers a question about the day's article.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Page holds the static text shown on the form.
type Page struct {
	Title       string
	Description string
	DateKey     string
}

// NewPage returns the page text for title and date key.
func NewPage(title, dateKey string) Page {
	return Page{
		Title:       title + " - " + dateKey,
		Description: "Ask questions about the article for " + dateKey,
		DateKey:     dateKey,
	}
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskResponse is the reply of POST /api/ask.
type AskResponse struct {
	Answer string `json:"answer"`
}

// formView is the data rendered into the index template.
type formView struct {
	Page
	Question string
	Answer   string
	Error    string
}

// Handler serves the question form and the JSON API.
type Handler struct {
	asker  Asker
	page   Page
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(asker Asker, page Page) (*Handler, error) {
	if asker == nil {
		return nil, ErrAskerRequired
	}
	return &Handler{
		asker:  asker,
		page:   page,
		logger: slog.Default().With("component", "web"),
	}, nil
}

// Index renders the empty form.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, indexTemplate, formView{Page: h.page})
}

// Submit answers the form's question field and renders the result.
func (h *Handler) Submit(c *gin.Context) {
	view := formView{
		Page:     h.page,
		Question: c.PostForm("question"),
	}

	text, err := h.asker.Ask(c.Request.Context(), view.Question)
	if err != nil {
		status := h.statusFor(err, view.Question)
		view.Error = err.Error()
		c.HTML(status, indexTemplate, view)
		return
	}

	view.Answer = text
	c.HTML(http.StatusOK, indexTemplate, view)
}

// Ask answers a JSON question.
func (h *Handler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	text, err := h.asker.Ask(c.Request.Context(), req.Question)
	if err != nil {
		c.JSON(h.statusFor(err, req.Question), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, AskResponse{Answer: text})
}

// Health reports that the index is loaded.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "date": h.page.DateKey})
}

func (h *Handler) statusFor(err error, question string) int {
	if errors.Is(err, answer.ErrEmptyQuestion) {
		return http.StatusBadRequest
	}
	h.logger.Error("error answering question", "question", question, "error", err)
	return http.StatusInternalServerError
}
