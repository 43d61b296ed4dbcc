package domain

// NFCTag is a read-only row owned by the tag-provisioning service
// (nfc_tags table). A scan resolves the tag to its bound patient.
type NFCTag struct {
	TagID     string `db:"tag_id"` // PRIMARY KEY
	PatientID string `db:"patient_id"`
	Active    bool   `db:"active"`
}
