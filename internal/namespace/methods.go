package namespace

// Wire method names
const (
	methodList        = "list"
	methodRead        = "read"
	methodWrite       = "write"
	methodDelete      = "delete"
	methodExists      = "exists"
	methodMkdir       = "mkdir"
	methodRmdir       = "rmdir"
	methodIsDirectory = "is_directory"
	methodGlob        = "glob"
	methodGrep        = "grep"
	methodRename      = "rename"

	methodListMounts          = "list_mounts"
	methodListConnectors      = "list_connectors"
	methodListSavedMounts     = "list_saved_mounts"
	methodListSavedConnectors = "list_saved_connectors"
	methodLoadMount           = "load_mount"
	methodSyncMount           = "sync_mount"
	methodDeleteSavedMount    = "delete_saved_mount"
	methodSaveMount           = "save_mount"
	methodRemoveMount         = "remove_mount"
)
