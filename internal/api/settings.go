package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/JustJay7/case-manager/internal/auth"
	"github.com/JustJay7/case-manager/internal/firm"
)

// GetFirmSettings returns the firm profile, or null when none is saved yet.
func (h *Handlers) GetFirmSettings(c *gin.Context) {
	fs, err := h.Firm.GetSettings(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, fs)
}

func (h *Handlers) UpdateFirmSettings(c *gin.Context) {
	var in firm.SettingsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	fs, err := h.Firm.UpdateSettings(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, fs)
}

// UploadLogo accepts a multipart "logo" file.
func (h *Handlers) UploadLogo(c *gin.Context) {
	header, err := c.FormFile("logo")
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

	url, err := h.Firm.UploadLogo(c.Request.Context(), auth.UserID(c), header.Filename, header.Size, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"logo_url": url})
}

func (h *Handlers) GetOrganization(c *gin.Context) {
	prefix, err := h.Firm.OrganizationPrefix(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"organization_prefix": prefix})
}

func (h *Handlers) UpdateOrganization(c *gin.Context) {
	var req struct {
		OrganizationPrefix string `json:"organization_prefix"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	prefix, err := h.Firm.SetOrganizationPrefix(c.Request.Context(), auth.UserID(c), req.OrganizationPrefix)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"organization_prefix": prefix})
}

func (h *Handlers) GetPreferences(c *gin.Context) {
	prefs, err := h.Firm.Preferences(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, prefs)
}

func (h *Handlers) UpdatePreferences(c *gin.Context) {
	var in firm.PreferencesInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}

	prefs, err := h.Firm.UpdatePreferences(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, prefs)
}

// AddCategory appends a case or document category.
func (h *Handlers) AddCategory(c *gin.Context) {
	var req struct {
		Kind string `json:"kind" binding:"required"`
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	prefs, err := h.Firm.AddCategory(c.Request.Context(), auth.UserID(c), req.Kind, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, prefs)
}

func (h *Handlers) RemoveCategory(c *gin.Context) {
	prefs, err := h.Firm.RemoveCategory(c.Request.Context(), auth.UserID(c), c.Param("kind"), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, prefs)
}
