package dto

// DocumentUploadResponse is returned by POST /api/documents/upload.
type DocumentUploadResponse struct {
	Filename    string `json:"filename"`
	FilePath    string `json:"file_path"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type,omitempty"`
}

// DocumentProcessRequest is the body of POST /api/documents/process.
type DocumentProcessRequest struct {
	FilePath    string `json:"file_path"`
	OutputDir   string `json:"output_dir,omitempty"`
	ParseMethod string `json:"parse_method,omitempty"`
}

// DocumentProcessResponse is returned by /process and /upload-and-process.
type DocumentProcessResponse struct {
	Status    string `json:"status"`
	FilePath  string `json:"file_path"`
	OutputDir string `json:"output_dir,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DocumentListResponse is returned by GET /api/documents/list.
type DocumentListResponse struct {
	Documents []string `json:"documents"`
	Total     int      `json:"total"`
}

// DocumentDetailItem is one entry of DocumentDetailsResponse.
type DocumentDetailItem struct {
	Filename        string `json:"filename"`
	FilePath        string `json:"file_path"`
	FileSize        int64  `json:"file_size"`
	UploadDate      string `json:"upload_date"`
	Status          string `json:"status"`
	StorageLocation string `json:"storage_location"`
}

// DocumentDetailsResponse is returned by GET /api/documents/details.
type DocumentDetailsResponse struct {
	Documents []DocumentDetailItem `json:"documents"`
	Total     int                  `json:"total"`
}

// DocumentDeleteResponse is returned by DELETE /api/documents/delete/{filename}.
type DocumentDeleteResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	TrashLocation string `json:"trash_location"`
	OriginalPath  string `json:"original_path"`
}

// IndexStatusResponse is one entry of GET /api/documents/index-status.
type IndexStatusResponse struct {
	FilePath     string  `json:"file_path"`
	FileHash     string  `json:"file_hash"`
	Status       string  `json:"status"`
	IndexedAt    *string `json:"indexed_at,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
	FileSize     int64   `json:"file_size"`
	LastModified string  `json:"last_modified"`
}

// TriggerIndexResponse is returned by POST /api/documents/trigger-index.
type TriggerIndexResponse struct {
	FilesScanned    int    `json:"files_scanned"`
	FilesPending    int    `json:"files_pending"`
	FilesProcessing int    `json:"files_processing"`
	Message         string `json:"message"`
}
