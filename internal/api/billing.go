package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/JustJay7/case-manager/internal/auth"
	"github.com/JustJay7/case-manager/internal/billing"
	"github.com/JustJay7/case-manager/internal/dashboard"
)

func (h *Handlers) ListTimeEntries(c *gin.Context) {
	entries, err := h.Billing.ListTimeEntries(c.Request.Context(), billing.TimeEntryFilter{
		Owner:    auth.UserID(c),
		CaseID:   c.Query("case_id"),
		ClientID: c.Query("client_id"),
		Status:   c.Query("status"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

func (h *Handlers) CreateTimeEntry(c *gin.Context) {
	var in billing.TimeEntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.Billing.CreateTimeEntry(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, entry)
}

func (h *Handlers) ListInvoices(c *gin.Context) {
	invoices, err := h.Billing.ListInvoices(c.Request.Context(), auth.UserID(c), c.Query("status"), c.Query("client_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, invoices)
}

func (h *Handlers) GetInvoice(c *gin.Context) {
	inv, err := h.Billing.GetInvoice(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, inv)
}

func (h *Handlers) CreateInvoice(c *gin.Context) {
	var in billing.InvoiceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	inv, err := h.Billing.CreateInvoice(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, inv)
}

func (h *Handlers) UpdateInvoiceStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	inv, err := h.Billing.UpdateStatus(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, inv)
}

func (h *Handlers) BillingSummary(c *gin.Context) {
	sum, err := h.Billing.Summary(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, sum)
}

// GetDashboard returns stats, recent cases, upcoming hearings and recent
// documents in one response.
func (h *Handlers) GetDashboard(c *gin.Context) {
	ov, err := h.Dashboard.Overview(c.Request.Context(), auth.UserID(c), queryInt(c, "limit", dashboard.DefaultLimit))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, ov)
}

// CallRPC runs a dashboard function by name. The body is optional JSON
// params; user_id always resolves to the caller.
func (h *Handlers) CallRPC(c *gin.Context) {
	var params dashboard.Params
	if err := c.ShouldBindJSON(&params); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	params.UserID = auth.UserID(c)

	out, err := h.Dashboard.Call(c.Request.Context(), c.Param("name"), params)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}
