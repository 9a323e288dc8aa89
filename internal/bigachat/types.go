package bigachat

const roleUser = "user"

// chatRequest is the JSON body of a chat-completion call. Exactly one
// user-turn message is sent; no conversation history is retained.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatChoiceMessage `json:"message"`
}

type chatChoiceMessage struct {
	Content string `json:"content"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}
