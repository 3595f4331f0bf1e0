package dto

// QueryRequest is the body of POST /api/query/.
type QueryRequest struct {
	Query       string  `json:"query"`
	Mode        string  `json:"mode,omitempty"` // naive, local, global, hybrid
	TopK        int     `json:"top_k,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

// QueryResponseMetadata carries ancillary fields about how the query was
// answered.
type QueryResponseMetadata struct {
	Timestamp string `json:"timestamp"`
}

// QueryResponse is the shared shape returned by /, /multimodal and, with
// History appended, /conversation.
type QueryResponse struct {
	Query    string                 `json:"query"`
	Response string                 `json:"response"`
	Mode     string                 `json:"mode"`
	Metadata QueryResponseMetadata  `json:"metadata"`
	History  []ConversationTurn     `json:"history,omitempty"`
}

// MultimodalContentItem is one attached image/table/equation on a
// multimodal query.
type MultimodalContentItem struct {
	Type        string `json:"type"` // image, table, equation
	ImgBase64   string `json:"img_base64,omitempty"`
	ImgMimeType string `json:"img_mime_type,omitempty"`
	TableText   string `json:"table_text,omitempty"`
	EquationTex string `json:"equation_tex,omitempty"`
}

// MultimodalQueryRequest is the body of POST /api/query/multimodal.
type MultimodalQueryRequest struct {
	Query             string                   `json:"query"`
	Mode              string                   `json:"mode,omitempty"`
	TopK              int                      `json:"top_k,omitempty"`
	MaxTokens         int                      `json:"max_tokens,omitempty"`
	Temperature       float32                  `json:"temperature,omitempty"`
	MultimodalContent []MultimodalContentItem  `json:"multimodal_content,omitempty"`
}

// ConversationTurn is one entry of a conversational query's history.
type ConversationTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ConversationQueryRequest is the body of POST /api/query/conversation.
type ConversationQueryRequest struct {
	Query       string             `json:"query"`
	Mode        string             `json:"mode,omitempty"`
	TopK        int                `json:"top_k,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float32            `json:"temperature,omitempty"`
	History     []ConversationTurn `json:"history,omitempty"`
}
