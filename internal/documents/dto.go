package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID string    `json:"documentId"`
	FileName   string    `json:"fileName"`
	MimeType   string    `json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	UploadedAt time.Time `json:"uploadedAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		MimeType:   doc.MimeType,
		SizeBytes:  doc.SizeBytes,
		UploadedAt: doc.CreatedAt,
	}
}

// GrantResponse is the outward-facing representation of a share grant.
type GrantResponse struct {
	GrantID        string `json:"grantId"`
	DocumentID     string `json:"documentId"`
	BusinessUserID string `json:"businessUserId"`
	ApplicationID  string `json:"applicationId,omitempty"`
	GrantedAt      string `json:"grantedAt"`
	ExpiresAt      string `json:"expiresAt,omitempty"`
}

func toGrantResponse(g ShareGrant) GrantResponse {
	out := GrantResponse{
		GrantID:        g.ID,
		DocumentID:     g.DocumentID,
		BusinessUserID: g.BusinessUserID,
		GrantedAt:      g.GrantedAt.Format(time.RFC3339),
	}
	if g.ApplicationID != nil {
		out.ApplicationID = *g.ApplicationID
	}
	if g.ExpiresAt != nil {
		out.ExpiresAt = g.ExpiresAt.Format(time.RFC3339)
	}
	return out
}
