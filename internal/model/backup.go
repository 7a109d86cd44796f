package model

// BackupFile is one zip archive in the backup directory, parsed from the
// ta_backup-{YYYYMMDD}-{reason}.zip filename grammar. Legacy two-segment
// names carry no reason.
type BackupFile struct {
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason,omitempty"`
}
