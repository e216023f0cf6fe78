package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/JustJay7/case-manager/internal/auth"
	"github.com/JustJay7/case-manager/internal/cases"
	"github.com/JustJay7/case-manager/internal/clients"
	"github.com/JustJay7/case-manager/internal/numbering"
)

// ListClients returns clients ordered by name, optionally filtered by ?search=.
func (h *Handlers) ListClients(c *gin.Context) {
	list, err := h.Clients.List(c.Request.Context(), auth.UserID(c), c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handlers) GetClient(c *gin.Context) {
	client, err := h.Clients.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, client)
}

// NextClientNumber previews the number the next client would receive.
func (h *Handlers) NextClientNumber(c *gin.Context) {
	ctx := c.Request.Context()
	prefix, err := h.Firm.OrganizationPrefix(ctx, auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	number, err := h.Clients.NextNumber(ctx, prefix)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"client_number": number})
}

// CreateClient numbers the client under the caller's organization prefix.
// Input is validated before the prefix is looked up.
func (h *Handlers) CreateClient(c *gin.Context) {
	var in clients.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := in.Validate().Err(); err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	userID := auth.UserID(c)
	prefix, err := h.Firm.OrganizationPrefix(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	client, err := h.Clients.Create(ctx, userID, prefix, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, client)
}

func (h *Handlers) UpdateClient(c *gin.Context) {
	var in clients.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	client, err := h.Clients.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, client)
}

func (h *Handlers) DeleteClient(c *gin.Context) {
	if err := h.Clients.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCases returns one page of cases.
func (h *Handlers) ListCases(c *gin.Context) {
	page, err := h.Cases.List(c.Request.Context(), cases.Filter{
		Owner:    auth.UserID(c),
		Status:   c.Query("status"),
		ClientID: c.Query("client_id"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "limit", cases.DefaultPageSize),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    page.Cases,
		"pagination": gin.H{
			"page":  page.Page,
			"limit": page.PageSize,
			"total": page.Total,
		},
	})
}

func (h *Handlers) GetCase(c *gin.Context) {
	kase, err := h.Cases.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, kase)
}

func (h *Handlers) CreateCase(c *gin.Context) {
	var in cases.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	kase, err := h.Cases.Create(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, kase)
}

func (h *Handlers) UpdateCase(c *gin.Context) {
	var in cases.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	kase, err := h.Cases.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, kase)
}

func (h *Handlers) DeleteCase(c *gin.Context) {
	if err := h.Cases.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MatterTypes returns the matter taxonomy, flat and grouped by category.
func (h *Handlers) MatterTypes(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"types":      numbering.MatterTypes(),
		"categories": numbering.MatterTypesByCategory(),
	})
}
