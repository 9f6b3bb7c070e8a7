package index

// Posting records the occurrences of one term in one document.
type Posting struct {
	// Position is the document's corpus position.
	Position  int
	Frequency int
	// Offsets are token offsets of each occurrence within the document.
	Offsets []int
}

type PostingList []Posting

// TermEntry is the full record of one vocabulary term.
type TermEntry struct {
	Term                string
	DocFrequency        int
	CollectionFrequency int
	Postings            PostingList
}

// DocStats summarizes one document's token stream.
type DocStats struct {
	Position    int
	Length      int
	UniqueTerms int
}
