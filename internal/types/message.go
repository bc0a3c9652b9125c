package types

// ActionExtract is the only action the extraction handler understands.
const ActionExtract = "extractData"

// ExtractRequest asks the extraction core to scrape a page.
// URL names the page to attach to; the browser extension implied it from the active tab.
type ExtractRequest struct {
	Action string `json:"action"`
	URL    string `json:"url,omitempty"`
}

// ExtractResponse is the single reply to an ExtractRequest.
type ExtractResponse struct {
	Success bool           `json:"success"`
	Data    *ProductRecord `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Succeeded wraps a record in a success response.
func Succeeded(rec *ProductRecord) ExtractResponse {
	return ExtractResponse{Success: true, Data: rec}
}

// Failed wraps an error in a failure response.
func Failed(err error) ExtractResponse {
	return ExtractResponse{Success: false, Error: err.Error()}
}
