package model

// ScriptRequest is the body of the content script function.
type ScriptRequest struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	Platform string `json:"platform"`
	Time     string `json:"time"`
}

// ScriptResult is a free-form multi-section script.
type ScriptResult struct {
	Script string `json:"script"`
}
