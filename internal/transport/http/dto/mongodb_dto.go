package dto

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

type InstalledResponse struct {
	Installed bool `json:"installed"`
}

type InstallAcceptedResponse struct {
	Message string `json:"message"`
}

type ConnectRequest struct {
	URI string `json:"uri"`
}

type InsertDocumentRequest struct {
	Document map[string]any `json:"document"`
}

func (r *InsertDocumentRequest) Validate() []string {
	var errs []string
	if len(r.Document) == 0 {
		errs = append(errs, "document must not be empty")
	}
	return errs
}

type FindDocumentsRequest struct {
	Filter map[string]any `json:"filter"`
}

type UpdateDocumentRequest struct {
	Fields map[string]any `json:"fields"`
}

func (r *UpdateDocumentRequest) Validate() []string {
	var errs []string
	if len(r.Fields) == 0 {
		errs = append(errs, "fields must not be empty")
	}
	return errs
}

type InsertDocumentResponse struct {
	ID string `json:"id"`
}

type DocumentsResponse struct {
	Documents []map[string]any `json:"documents"`
}

type CollectionsResponse struct {
	Collections []string `json:"collections"`
}

type MutationResponse struct {
	Matched bool `json:"matched"`
}
