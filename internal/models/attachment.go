package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Attachment is the metadata of one uploaded file. The files document is
// keyed by attachment key. Records referenced by an issue or comment are
// never updated or deleted.
type Attachment struct {
	Key          string    `json:"-"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"filename"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"type"`
	UploadedBy   string    `json:"uploaded_by"`
	UploadedAt   Timestamp `json:"uploaded_at"`
	SHA256       string    `json:"sha256,omitempty"`
}

// AttachmentIndex is the files document. An empty JSON list is read as an
// empty index, which is how older data directories were seeded.
type AttachmentIndex map[string]*Attachment

func (idx *AttachmentIndex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("attachment index: %w", err)
		}
		if len(list) > 0 {
			return fmt.Errorf("attachment index: want an object keyed by attachment key, got a list of %d", len(list))
		}
		*idx = AttachmentIndex{}
		return nil
	}
	m := map[string]*Attachment{}
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("attachment index: %w", err)
	}
	*idx = m
	return nil
}

// AttachmentRef is the attachment key stored on an issue or comment. A weak
// reference: the key may not resolve. Older documents hold null or false
// when an upload failed, and both read as no attachment.
type AttachmentRef string

func (r *AttachmentRef) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null", "false":
		*r = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("attachment: %w", err)
	}
	*r = AttachmentRef(s)
	return nil
}

func (r AttachmentRef) String() string { return string(r) }
