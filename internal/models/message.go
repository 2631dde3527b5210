package models

// ChatMessage is one entry of a guide transcript. ID is the message's position in the
// transcript and stays stable for the lifetime of the session.
type ChatMessage struct {
	ID      int      `json:"id"`
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}
