package port

// Tokenizer splits text into comparable word forms.
type Tokenizer interface {
	Tokenize(text string) []string
}
