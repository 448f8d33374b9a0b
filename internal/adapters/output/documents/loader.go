package documents

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"support-desk/internal/domain"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Load reads the documentation file at path. The format is chosen by
// extension: .yaml and .yml are YAML, anything else is JSON. Both hold a
// top-level list of {title, content} entries.
func Load(path string) (domain.DocumentSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.NewDocumentSet(nil), fmt.Errorf("read documentation %s: %w", path, err)
	}

	var docs []domain.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &docs)
	default:
		err = json.Unmarshal(raw, &docs)
	}
	if err != nil {
		return domain.NewDocumentSet(nil), fmt.Errorf("parse documentation %s: %w", path, err)
	}

	for i, doc := range docs {
		if strings.TrimSpace(doc.Title) == "" {
			logrus.Warnf("Documentation entry %d in %s has no title; it is only used for generated replies", i, path)
		}
	}
	return domain.NewDocumentSet(docs), nil
}

// LoadOrEmpty degrades to an empty set when the file is missing or malformed.
// The service keeps running and every demo question gets the fallback reply.
func LoadOrEmpty(path string) domain.DocumentSet {
	docs, err := Load(path)
	if err != nil {
		logrus.Errorf("Failed to load documentation: %v", err)
		return docs
	}
	logrus.Infof("Loaded %d documentation entries from %s", docs.Len(), path)
	return docs
}
