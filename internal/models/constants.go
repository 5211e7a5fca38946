package models

const (
	// RetrievalK is the number of blobs retrieved per question.
	RetrievalK = 4
	// MemoryWindow is the number of most recent turns kept per session.
	MemoryWindow = 2

	DefaultEmbeddingProvider = "ollama"
	DefaultEmbeddingModel    = "nomic-embed-text"
	DefaultInferenceProvider = "together"
	DefaultInferenceModel    = "mistralai/Mistral-7B-Instruct-v0.2"
	DefaultTemperature       = 0.5
	DefaultMaxTokens         = 512

	DefaultSessionID = "default"
	ContextSeparator = "\n\n"
	HumanPrefix      = "Human"
	AIPrefix         = "AI"
)

// BlobTemplate flattens one place into the text that gets embedded.
// Field order: place, description, location, opening hours, price.
const BlobTemplate = "Place: %s. Description: %s. Location: %s. Opening Hours: %s. Price: %s."

// PromptTemplate is sent as one chat message. The provider's chat template adds the
// model's instruction tags, so the text carries none of its own.
var (
	PromptTemplate = `You are a helpful travel assistant.
Provide short and clear answers about tourist places, hotels, transportation, and itineraries.
Always answer based on the given CONTEXT only.

CONTEXT: {{.context}}
CHAT HISTORY: {{.chat_history}}
QUESTION: {{.question}}
ANSWER:`

	PromptInputVariables = []string{"context", "chat_history", "question"}
)
