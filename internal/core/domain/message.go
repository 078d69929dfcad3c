package domain

// ChatTurn is one past exchange line in a conversation.
type ChatTurn struct {
	// Who is the speaker, "Human" or "AI".
	Who string

	// Message is the utterance text.
	Message string
}

// Reply is the bot's answer to one user message.
type Reply struct {
	// Content is the answer text.
	Content string

	// UsedTool is the name of the tool that produced the answer,
	// empty when the reply came from the memory chain.
	UsedTool string

	// DeclarativeSources lists the source filenames of recalled
	// declarative memories, for attribution.
	DeclarativeSources []string
}
