package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// PinataStore pins files to IPFS through the Pinata API.
type PinataStore struct {
	client  *http.Client
	apiURL  string
	jwt     string
	gateway string
}

type pinataMetadata struct {
	Name string `json:"name"`
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// NewPinataStore creates a PinataStore. gateway is the host that serves pinned content.
func NewPinataStore(client *http.Client, apiURL, jwt, gateway string) *PinataStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PinataStore{
		client:  client,
		apiURL:  strings.TrimRight(apiURL, "/"),
		jwt:     jwt,
		gateway: gateway,
	}
}

// Upload pins data under name and returns its gateway URL.
func (s *PinataStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, name))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}

	meta, err := json.Marshal(pinataMetadata{Name: name})
	if err != nil {
		return "", err
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.jwt)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("pinata upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("pinata upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var pinned pinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&pinned); err != nil {
		return "", fmt.Errorf("pinata upload: decode response: %w", err)
	}
	if pinned.IpfsHash == "" {
		return "", fmt.Errorf("pinata upload: empty IpfsHash")
	}

	return fmt.Sprintf("https://%s/ipfs/%s", s.gateway, pinned.IpfsHash), nil
}
