package entity

import "time"

// Attachment is an evidence file owned by a claim
type Attachment struct {
	ID               int64     `json:"id"`
	ClaimID          int64     `json:"claim_id"`
	OriginalFilename string    `json:"original_filename"`
	StoredFilename   string    `json:"stored_filename"`
	FileSize         int64     `json:"file_size"`
	FileType         string    `json:"file_type"`
	FilePath         string    `json:"-"`
	PageCount        int       `json:"page_count,omitempty"`
	Description      string    `json:"description,omitempty"`
	UploadedBy       string    `json:"uploaded_by"`
	CreatedAt        time.Time `json:"created_at"`
}

// Snapshot returns the auditable view of the attachment
func (a *Attachment) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"id":                a.ID,
		"claim_id":          a.ClaimID,
		"original_filename": a.OriginalFilename,
		"stored_filename":   a.StoredFilename,
		"file_size":         a.FileSize,
		"file_type":         a.FileType,
		"description":       a.Description,
	}
}
