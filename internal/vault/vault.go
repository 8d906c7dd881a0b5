package vault

import (
	"fmt"
	"net/http"
)

// Item field types used by the vault Connect API.
const (
	FieldTypeString    = "STRING"
	FieldTypeConcealed = "CONCEALED"

	CategoryLogin = "LOGIN"
)

// Vault is a vault summary returned by the Connect server.
type Vault struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Field is a single labeled value within an item.
type Field struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ItemURL is a URL attached to an item.
type ItemURL struct {
	Label   string `json:"label,omitempty"`
	Primary bool   `json:"primary"`
	HRef    string `json:"href"`
}

// ItemVault references the vault an item belongs to.
type ItemVault struct {
	ID string `json:"id"`
}

// Item is a vault item, one is held per asset.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Item struct {
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Vault    ItemVault `json:"vault"`
	Fields   []Field   `json:"fields"`
	URLs     []ItemURL `json:"urls,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
}

// FieldValues flattens item fields into a label to value map.
func (i *Item) FieldValues() map[string]string {
	values := map[string]string{}
	for _, f := range i.Fields {
		values[f.Label] = f.Value
	}

	return values
}

// Error is returned for any vault request that fails, whether the server
// responded with a non-2xx status or the transport gave up. Callers have this
// one error type to handle.
//
// nolint:govet // fieldalignment struct is easier to read in the current format
type Error struct {
	// Op is the client operation that failed.
	Op string
	// StatusCode is the HTTP status, zero for transport failures.
	StatusCode int
	// Message is a short diagnostic.
	Message string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("vault %s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("vault %s: status %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsNotFound indicates the error is for a missing vault or item.
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
