package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var errSubjectNotFound = errors.New("schema subject not found")

// SchemaRegistryClient resolves schema ids from a Confluent Schema Registry.
// Ids are cached per subject for the life of the client.
type SchemaRegistryClient struct {
	baseURL string
	http    *http.Client

	mu  sync.RWMutex
	ids map[string]int
}

// NewSchemaRegistryClient constructs a client with a 10s request timeout.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		ids:     make(map[string]int),
	}
}

// EnsureSchema returns the id of the latest version under subject. A subject
// that does not exist yet is registered with schema.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject, schema string) (int, error) {
	c.mu.RLock()
	id, ok := c.ids[subject]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := c.send(ctx, http.MethodGet, c.subjectURL(subject, "versions/latest"), nil)
	if errors.Is(err, errSubjectNotFound) {
		body, _ := json.Marshal(struct {
			SchemaType string `json:"schemaType"`
			Schema     string `json:"schema"`
		}{SchemaType: "JSON", Schema: schema})
		id, err = c.send(ctx, http.MethodPost, c.subjectURL(subject, "versions"), body)
	}
	if err != nil {
		return 0, fmt.Errorf("schema registry subject %s: %w", subject, err)
	}

	c.mu.Lock()
	c.ids[subject] = id
	c.mu.Unlock()
	return id, nil
}

func (c *SchemaRegistryClient) subjectURL(subject, suffix string) string {
	return c.baseURL + "/subjects/" + url.PathEscape(subject) + "/" + suffix
}

func (c *SchemaRegistryClient) send(ctx context.Context, method, endpoint string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, errSubjectNotFound
	case resp.StatusCode >= http.StatusMultipleChoices:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%s %s: %s: %s", method, req.URL.Path, resp.Status, bytes.TrimSpace(detail))
	}

	var out struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode %s response: %w", method, err)
	}
	return out.ID, nil
}
