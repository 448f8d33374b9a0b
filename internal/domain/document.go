package domain

import "strings"

// Document is a static title/content pair from the support documentation
type Document struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// DocumentSet is an immutable, ordered collection of documents built once at startup.
type DocumentSet struct {
	docs []Document
}

// NewDocumentSet copies docs into a new set, preserving order
func NewDocumentSet(docs []Document) DocumentSet {
	copied := make([]Document, len(docs))
	copy(copied, docs)
	return DocumentSet{docs: copied}
}

// Len returns the number of documents
func (s DocumentSet) Len() int {
	return len(s.docs)
}

// All returns a copy of the documents in their original order
func (s DocumentSet) All() []Document {
	docs := make([]Document, len(s.docs))
	copy(docs, s.docs)
	return docs
}

// FindByTitle returns the first document whose lowercased title contains
// any of the given substrings.
func (s DocumentSet) FindByTitle(substrings ...string) (Document, bool) {
	for _, doc := range s.docs {
		title := strings.ToLower(doc.Title)
		for _, sub := range substrings {
			if strings.Contains(title, strings.ToLower(sub)) {
				return doc, true
			}
		}
	}
	return Document{}, false
}
