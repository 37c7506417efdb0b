package port

// FileWalker selects local files for bulk ingestion.
type FileWalker interface {
	// Walk lists matching files under root.
	Walk(root string) ([]FileInfo, error)

	// Expand resolves a mix of files, directories and glob patterns.
	Expand(args []string) ([]FileInfo, error)
}

// FileInfo describes one candidate file. ModTime is in Unix seconds.
type FileInfo struct {
	Path    string
	ModTime int64
	Size    int64
}
