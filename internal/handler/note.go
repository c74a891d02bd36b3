package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/query"
)

const maxImportBytes = 5 << 20

type NoteHandler struct {
	sessions Sessions
	logger   zerolog.Logger
}

func NewNoteHandler(sessions Sessions, logger zerolog.Logger) *NoteHandler {
	return &NoteHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// List returns the caller's own notes, narrowed by ?q= and ?tags=a,b and
// ordered by ?sort=recent|title|created.
func (h *NoteHandler) List(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := s.RefreshNotes(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "failed to load notes")
		return
	}

	notes, err := s.SearchNotes(c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err, "failed to list notes")
		return
	}

	if tags := splitList(c.Query("tags")); len(tags) > 0 {
		notes = query.FilterByTags(notes, tags)
	}
	if sortBy := c.Query("sort"); sortBy != "" {
		notes = query.Sort(notes, model.NoteSort(sortBy))
	}

	c.JSON(http.StatusOK, gin.H{"data": notes})
}

func (h *NoteHandler) Shared(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := s.RefreshNotes(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "failed to load notes")
		return
	}

	notes, err := s.SharedNotes()
	if err != nil {
		respondError(c, h.logger, err, "failed to list shared notes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notes})
}

func (h *NoteHandler) Public(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := s.RefreshNotes(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "failed to load notes")
		return
	}

	notes, err := s.PublicNotes()
	if err != nil {
		respondError(c, h.logger, err, "failed to list public notes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": notes})
}

func (h *NoteHandler) Tags(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := s.RefreshNotes(c.Request.Context()); err != nil {
		respondError(c, h.logger, err, "failed to load notes")
		return
	}

	tags, err := s.Tags()
	if err != nil {
		respondError(c, h.logger, err, "failed to list tags")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tags})
}

func (h *NoteHandler) Create(c *gin.Context) {
	var req model.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	note, err := s.CreateNote(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err, "failed to create note")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": note, "message": "note created"})
}

func (h *NoteHandler) Update(c *gin.Context) {
	var req model.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	note, err := s.UpdateNote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err, "failed to update note")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note, "message": "note updated"})
}

func (h *NoteHandler) Delete(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	if err := s.DeleteNote(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, "failed to delete note")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note deleted"})
}

func (h *NoteHandler) Share(c *gin.Context) {
	var req model.ShareNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	note, err := s.ShareNote(c.Request.Context(), c.Param("id"), req.Emails)
	if err != nil {
		respondError(c, h.logger, err, "failed to share note")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note, "message": "note shared"})
}

func (h *NoteHandler) Visibility(c *gin.Context) {
	var req model.NoteVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	note, err := s.ShareNoteWithAll(c.Request.Context(), c.Param("id"), *req.Share)
	if err != nil {
		respondError(c, h.logger, err, "failed to change note visibility")
		return
	}

	msg := "note is now private"
	if *req.Share {
		msg = "note is now public"
	}
	c.JSON(http.StatusOK, gin.H{"data": note, "message": msg})
}

func (h *NoteHandler) Like(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	note, err := s.LikeNote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "failed to like note")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": note})
}

func (h *NoteHandler) Export(c *gin.Context) {
	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	data, name, err := s.ExportNotes()
	if err != nil {
		respondError(c, h.logger, err, "failed to export notes")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/json", data)
}

// Import takes the raw export document as the request body.
func (h *NoteHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "import file too large"})
		return
	}

	s, ok := openSession(c, h.sessions, h.logger)
	if !ok {
		return
	}

	notes, err := s.ImportNotes(c.Request.Context(), data)
	if err != nil {
		respondError(c, h.logger, err, "failed to import notes")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data":    notes,
		"message": fmt.Sprintf("imported %d notes", len(notes)),
	})
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
