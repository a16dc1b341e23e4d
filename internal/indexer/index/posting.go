package index

// DocumentWords is the tokenizer output for one document.
type DocumentWords struct {
	DocID int
	Words []string
}

// Posting records that Word occurs in document DocID.
type Posting struct {
	Word  string
	DocID int
}

// WordEntry is one line of the finished index. DocIDs is ascending and
// duplicate free; WordID is zero until ids are assigned.
type WordEntry struct {
	Word   string
	DocIDs []int
	WordID int
}

// Postings flattens documents into their individual postings.
func Postings(docs []DocumentWords) []Posting {
	n := 0
	for _, d := range docs {
		n += len(d.Words)
	}
	postings := make([]Posting, 0, n)
	for _, d := range docs {
		for _, w := range d.Words {
			postings = append(postings, Posting{Word: w, DocID: d.DocID})
		}
	}
	return postings
}
