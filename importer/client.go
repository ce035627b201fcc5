// Package importer creates mapped categories, products, and auxiliary
// entities in the target catalog system, maintaining cross-system id
// mappings and partial-failure bookkeeping for one run.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the target catalog's REST webservice. Payloads go out
// as XML, responses come back as JSON, and authentication is a single
// pre-shared key passed as a query parameter.
type Client struct {
	baseURL string
	key     string
	httpc   *http.Client
}

// NewClient builds a webservice client.
func NewClient(apiURL, apiKey string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("api url must be a non-empty string")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key must be a non-empty string")
	}
	return &Client{
		baseURL: strings.TrimRight(apiURL, "/"),
		key:     apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) resourceURL(resource string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("ws_key", c.key)
	params.Set("output_format", "JSON")
	return c.baseURL + "/" + resource + "?" + params.Encode()
}

// FindID returns the id of the first resource matching the filters, or
// 0 when nothing matches.
func (c *Client) FindID(ctx context.Context, resource string, filters map[string]string) (int, error) {
	params := url.Values{}
	params.Set("display", "[id]")
	params.Set("limit", "1")
	for key, value := range filters {
		params.Set("filter["+key+"]", "["+value+"]")
	}

	body, err := c.do(ctx, http.MethodGet, c.resourceURL(resource, params), nil, "")
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", resource, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return 0, nil
	}

	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		// Empty collections come back as a bare JSON array.
		return 0, nil
	}
	raw, ok := root[resource]
	if !ok {
		return 0, nil
	}
	var items []struct {
		ID flexInt `json:"id"`
	}
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return 0, nil
	}
	return int(items[0].ID), nil
}

// Add creates a resource from an XML payload and returns the new id.
func (c *Client) Add(ctx context.Context, resource string, payload any) (int, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(ctx, http.MethodPost, c.resourceURL(resource, nil), body, "application/xml")
	if err != nil {
		return 0, fmt.Errorf("add %s: %w", resource, err)
	}
	id, ok := extractID(resp)
	if !ok {
		return 0, fmt.Errorf("add %s: no id in response: %s", resource, snippet(resp))
	}
	return id, nil
}

// Edit updates an existing resource from an XML payload.
func (c *Client) Edit(ctx context.Context, resource string, id int, payload any) error {
	body, err := marshalPayload(payload)
	if err != nil {
		return err
	}
	target := c.resourceURL(resource+"/"+strconv.Itoa(id), nil)
	if _, err := c.do(ctx, http.MethodPut, target, body, "application/xml"); err != nil {
		return fmt.Errorf("edit %s/%d: %w", resource, id, err)
	}
	return nil
}

// UploadImage posts one image file to a product's image collection.
func (c *Client) UploadImage(ctx context.Context, productID int, filename string, data []byte, mimeType string) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", filename)
	if err != nil {
		return fmt.Errorf("build image form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("build image form: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("build image form: %w", err)
	}

	params := url.Values{}
	params.Set("ws_key", c.key)
	target := fmt.Sprintf("%s/images/products/%d?%s", c.baseURL, productID, params.Encode())
	if _, err := c.do(ctx, http.MethodPost, target, buf.Bytes(), form.FormDataContentType()); err != nil {
		return fmt.Errorf("upload image for product %d: %w", productID, err)
	}
	return nil
}

// FetchBytes downloads an arbitrary URL, typically a product image.
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, nil, "")
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, snippet(data))
	}
	return data, nil
}

func marshalPayload(payload any) ([]byte, error) {
	type envelope struct {
		XMLName xml.Name `xml:"prestashop"`
		Payload any
	}
	body, err := xml.Marshal(envelope{Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// extractID digs the created resource id out of a webservice response,
// with or without the outer "prestashop" wrapper.
func extractID(body []byte) (int, bool) {
	var root map[string]json.RawMessage
	if json.Unmarshal(body, &root) != nil {
		return 0, false
	}
	if inner, ok := root["prestashop"]; ok {
		if json.Unmarshal(inner, &root) != nil {
			return 0, false
		}
	}
	for _, raw := range root {
		var obj struct {
			ID flexInt `json:"id"`
		}
		if json.Unmarshal(raw, &obj) == nil && obj.ID > 0 {
			return int(obj.ID), true
		}
	}
	return 0, false
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// flexInt tolerates ids serialized as either numbers or strings.
type flexInt int

func (v *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*v = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*v = flexInt(n)
	return nil
}
