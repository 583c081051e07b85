package models

// ImageRef points at a stored photo. Key is opaque to everything outside
// the image store that issued it.
type ImageRef struct {
	Key      string `json:"key"`
	MIMEType string `json:"mime_type"`
	Name     string `json:"name,omitempty"`
}

// Image is a photo loaded into memory for an analysis call.
type Image struct {
	Data     []byte
	MIMEType string
}
