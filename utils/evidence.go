// utils/evidence.go
package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EvidenceStore keeps uploaded evidence images and returns their public URL.
type EvidenceStore interface {
	Put(ctx context.Context, key string, fileHeader *multipart.FileHeader) (string, error)
}

// MaxEvidenceSize bounds a single upload.
const MaxEvidenceSize = 10 << 20

var allowedEvidenceExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true, ".pdf": true,
}

// EvidenceKey builds an object key like "evidence/purchase/<user>/<uuid>.jpg".
func EvidenceKey(kind, userID, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedEvidenceExt[ext] {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "purchase", "display", "referral", "mission":
	default:
		return "", fmt.Errorf("unsupported evidence kind %q", kind)
	}
	return fmt.Sprintf("evidence/%s/%s/%s%s", kind, userID, uuid.NewString(), ext), nil
}
