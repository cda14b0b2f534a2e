package services

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/IMSA-2025/portal-service/internal/config"
	"github.com/IMSA-2025/portal-service/internal/models"
)

func cacheKeyID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// pageFromFilters derives the 1-based page and page size from limit/offset,
// mirroring what the repository layer will actually apply.
func pageFromFilters(limit, offset int) (page, size int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page = offset/limit + 1
	return page, limit
}

// checkUpload enforces size, extension and declared media type limits
// before anything touches disk. Admins get the larger size allowance.
func checkUpload(upload Upload, actor *models.User, cfg config.UploadConfig) error {
	limit := cfg.MaxSizeBytes
	if actor.IsAdmin() {
		limit = cfg.MaxAdminSizeBytes
	}
	if upload.Size <= 0 || upload.Size > limit {
		return ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(upload.FileName))
	if !containsFold(cfg.AllowedExtensions, ext) {
		return ErrFileTypeBlocked
	}

	if len(cfg.AllowedMIMETypes) > 0 {
		// The declared type is checked without parameters. Content
		// sniffing is out of scope; a lying declaration is rejected.
		mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(upload.ContentType, ";", 2)[0]))
		if !containsFold(cfg.AllowedMIMETypes, mediaType) {
			return ErrFileTypeBlocked
		}
	}
	return nil
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// uploaderInfo renders attribution, substituting the placeholder when the
// account no longer exists.
func uploaderInfo(u *models.User) models.UploaderInfo {
	if u == nil {
		return models.DeletedUploader
	}
	return models.UploaderInfo{ID: u.ID, Username: u.Username}
}

// canManage reports whether the actor may edit or delete a resource owned
// by ownerID. Anonymous callers manage nothing.
func canManage(actor *models.User, ownerID uint) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || actor.ID == ownerID
}
