package drive

// DefaultEndpoint is the Google Drive v3 API base.
const (
	DefaultEndpoint       = "https://www.googleapis.com/drive/v3"
	DefaultUploadEndpoint = "https://www.googleapis.com/upload/drive/v3"
)

// About describes the connected storage account.
type About struct {
	User         User         `json:"user"`
	StorageQuota StorageQuota `json:"storageQuota"`
}

// User is the account owner as reported by the provider.
type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// StorageQuota is the account's storage usage, in bytes encoded as strings.
type StorageQuota struct {
	Limit             string `json:"limit"`
	Usage             string `json:"usage"`
	UsageInDrive      string `json:"usageInDrive"`
	UsageInDriveTrash string `json:"usageInDriveTrash"`
}

// File is a stored campaign asset.
type File struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType"`
	Size     string   `json:"size,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// FileList is a page of files.
type FileList struct {
	Files         []File `json:"files"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// fileMetadata is the metadata part of a multipart upload.
type fileMetadata struct {
	Name     string   `json:"name"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}
