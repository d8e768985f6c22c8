package models

// Fingerprint is the connector-reported identity of one artifact version:
// enough information for the catalog to detect whether a previously-seen
// external_id has changed without re-reading its full content.
type Fingerprint struct {
	ExternalID  string `json:"external_id"`
	Version     string `json:"version"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// IsZero reports whether the fingerprint carries no identity information.
func (f Fingerprint) IsZero() bool {
	return f.ExternalID == "" && f.Version == ""
}
