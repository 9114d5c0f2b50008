package distribution

// CleanupResult lists what was pruned from a Drive folder to make room for an upload
type CleanupResult struct {
	DeletedFiles []DeletedFile
	FreedBytes   int64
}

// DeletedFile represents a file that was deleted
type DeletedFile struct {
	Name string
	Size int64
}
