package internal

// Version is reported by the CLI.
const Version = "0.3.0"

// ChapterRecord identifies one installment of the novel and where its text lives.
type ChapterRecord struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
}

// TermPair maps a recurring source-language term to its canonical rendering.
type TermPair struct {
	From string `json:"from"`
	To   string `json:"to"`
}
