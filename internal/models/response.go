package models

type CreateAssetResponse struct {
	ID        string `json:"id"`
	UploadURL string `json:"upload_url"`
}

type GetAssetResponse struct {
	DownloadURL string `json:"Download_url"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string `json:"status"`
	Failed string `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}
