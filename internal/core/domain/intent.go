package domain

// Intent classifies an incoming user message.
type Intent string

const (
	// IntentCatalog is a greeting or a request answerable by listing
	// the indexed documents. The catalog path never costs an embedding
	// or generation call.
	IntentCatalog Intent = "catalog"

	// IntentSubstantive is a policy question requiring retrieval.
	IntentSubstantive Intent = "substantive"
)

// String returns the intent name.
func (i Intent) String() string {
	return string(i)
}
