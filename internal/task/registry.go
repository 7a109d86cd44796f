package task

// Task type names, shared between the enqueue side and the worker mux.
const (
	TypeRunBackup       = "run_backup"
	TypeRestoreBackup   = "restore_backup"
	TypeIndexComments   = "index_comments"
	TypeReindexComments = "reindex_comments"
)

// Definition describes one registered task kind. Only registered tasks can
// receive a stop signal since only they poll for it.
type Definition struct {
	Name  string
	Title string
	Group string
}

// Registry holds every known task kind.
var Registry = map[string]Definition{
	TypeRunBackup: {
		Name:  TypeRunBackup,
		Title: "Index Backup",
		Group: "setting:backup",
	},
	TypeRestoreBackup: {
		Name:  TypeRestoreBackup,
		Title: "Restore Backup",
		Group: "setting:restore",
	},
	TypeIndexComments: {
		Name:  TypeIndexComments,
		Title: "Index Comments",
		Group: "comment:index",
	},
	TypeReindexComments: {
		Name:  TypeReindexComments,
		Title: "Reindex Comments",
		Group: "comment:reindex",
	},
}
