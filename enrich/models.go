package enrich

// geminiRequest represents the native Gemini GenerateContent API request
type geminiRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

// content represents a content block in the request
type content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []part `json:"parts"`
}

// part represents a part of content; either text or inline binary data
type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

// inlineData carries base64-encoded binary content, e.g. a generated image
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// generationConfig represents generation configuration
type generationConfig struct {
	Temperature      float32         `json:"temperature,omitempty"`
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   *responseSchema `json:"responseSchema,omitempty"`
}

// responseSchema constrains a JSON-mode response
type responseSchema struct {
	Type       string                     `json:"type"`
	Properties map[string]*responseSchema `json:"properties,omitempty"`
	Required   []string                   `json:"required,omitempty"`
}

// geminiResponse represents the response from the Gemini API
type geminiResponse struct {
	Candidates []candidate `json:"candidates"`
}

// candidate represents a response candidate
type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// errorResponse represents an error from the Gemini API
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
