package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/JustJay7/case-manager/internal/auth"
	"github.com/JustJay7/case-manager/internal/calendar"
	"github.com/JustJay7/case-manager/internal/documents"
)

func (h *Handlers) ListDocuments(c *gin.Context) {
	docs, err := h.Documents.List(c.Request.Context(), documents.Filter{
		Owner:    auth.UserID(c),
		CaseID:   c.Query("case_id"),
		ClientID: c.Query("client_id"),
		FileType: c.Query("file_type"),
		Search:   c.Query("search"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.Documents.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, doc)
}

// CreateDocument stores an uploaded file when the request is multipart,
// otherwise it records metadata for a file hosted elsewhere.
func (h *Handlers) CreateDocument(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserID(c)

	if c.ContentType() != "multipart/form-data" {
		var in documents.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
		doc, err := h.Documents.Create(ctx, userID, in)
		if err != nil {
			h.fail(c, err)
			return
		}
		ok(c, http.StatusCreated, doc)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	f, err := header.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	in := documents.Input{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		FileType:    c.PostForm("file_type"),
		CaseID:      c.PostForm("case_id"),
		ClientID:    c.PostForm("client_id"),
		Tags:        splitTags(c.PostForm("tags")),
	}
	doc, err := h.Documents.Upload(ctx, userID, header.Filename, f, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, doc)
}

func (h *Handlers) DeleteDocument(c *gin.Context) {
	if err := h.Documents.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEvents returns events starting in [from, to). Both bounds are RFC 3339
// and optional.
func (h *Handlers) ListEvents(c *gin.Context) {
	var from, to time.Time
	for key, dst := range map[string]*time.Time{"from": &from, "to": &to} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid " + key + " parameter, expected RFC 3339",
			})
			return
		}
		*dst = t
	}

	events, err := h.Calendar.List(c.Request.Context(), auth.UserID(c), from, to, c.Query("case_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, events)
}

func (h *Handlers) GetEvent(c *gin.Context) {
	e, err := h.Calendar.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, e)
}

func (h *Handlers) CreateEvent(c *gin.Context) {
	var in calendar.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	e, err := h.Calendar.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, e)
}

func (h *Handlers) DeleteEvent(c *gin.Context) {
	if err := h.Calendar.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ServeObject streams a stored file. Objects are public by URL.
func (h *Handlers) ServeObject(c *gin.Context) {
	f, err := h.Storage.Open(c.Param("bucket"), strings.TrimPrefix(c.Param("path"), "/"))
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fail(c, err)
		return
	}
	if info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "object not found",
		})
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
