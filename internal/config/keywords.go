package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v2"

	"github.com/ratnathegod/Cost-SLO-Aware-LLM-Inference-Router/internal/classify"
)

// LoadKeywords reads the classifier keyword lists at path. A missing,
// unparsable or empty file is returned as an error; a missing file's error
// wraps fs.ErrNotExist (detectable with errors.Is, not os.IsNotExist).
// Falling back to classify.Default() is left to the caller.
func LoadKeywords(path string) (classify.Keywords, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return classify.Keywords{}, fmt.Errorf("read keywords file: %w", err)
	}
	var kw classify.Keywords
	if err := yaml.Unmarshal(raw, &kw); err != nil {
		return classify.Keywords{}, fmt.Errorf("parse keywords file: %w", err)
	}
	if len(kw.Code) == 0 && len(kw.Writing) == 0 {
		return classify.Keywords{}, fmt.Errorf("keywords file has no code or writing entries")
	}
	return kw, nil
}
