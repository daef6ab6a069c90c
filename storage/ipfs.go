package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req"
	"github.com/tidwall/gjson"
)

// IPFSContentStore content store backed by an IPFS node's HTTP API
type IPFSContentStore struct {
	apiURL string
	client *req.Req
}

// NewIPFSContentStore create IPFS content store; apiURL like http://localhost:5001
func NewIPFSContentStore(apiURL string, timeout time.Duration) *IPFSContentStore {
	r := req.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	return &IPFSContentStore{
		apiURL: strings.TrimRight(multiaddrToURL(apiURL), "/"),
		client: r,
	}
}

// multiaddrToURL accepts the /dns4/host/tcp/port/http form used by ipfs clients
func multiaddrToURL(addr string) string {
	if !strings.HasPrefix(addr, "/") {
		return addr
	}
	parts := strings.Split(strings.Trim(addr, "/"), "/")
	if len(parts) < 4 {
		return addr
	}
	scheme := "http"
	if len(parts) >= 5 && parts[4] == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, parts[1], parts[3])
}

func (s *IPFSContentStore) endpoint(cmd string) string {
	return s.apiURL + "/api/v0/" + cmd
}

// Put adds data and pins it
func (s *IPFSContentStore) Put(ctx context.Context, data []byte) (Fingerprint, error) {
	upload := req.FileUpload{
		FileName:  "data",
		FieldName: "file",
		File:      io.NopCloser(bytes.NewReader(data)),
	}
	resp, err := s.client.Post(s.endpoint("add"), req.QueryParam{"pin": "true"}, upload, ctx)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}
	body, err := checkIPFSResponse(resp)
	if err != nil {
		return "", fmt.Errorf("ipfs add: %w", err)
	}

	hash := gjson.GetBytes(body, "Hash").String()
	if hash == "" {
		return "", fmt.Errorf("ipfs add: response without hash: %s", body)
	}
	return Fingerprint(hash), nil
}

// Get reads content by CID, ErrNotFound when the node cannot resolve it
func (s *IPFSContentStore) Get(ctx context.Context, fp Fingerprint) ([]byte, error) {
	if fp == "" {
		return nil, ErrNotFound
	}
	resp, err := s.client.Post(s.endpoint("cat"), req.QueryParam{"arg": string(fp)}, ctx)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w", fp, err)
	}
	body, err := checkIPFSResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("ipfs cat %s: %w", fp, err)
	}
	return body, nil
}

// ID returns the node's peer id
func (s *IPFSContentStore) ID(ctx context.Context) (string, error) {
	resp, err := s.client.Post(s.endpoint("id"), ctx)
	if err != nil {
		return "", fmt.Errorf("ipfs id: %w", err)
	}
	body, err := checkIPFSResponse(resp)
	if err != nil {
		return "", fmt.Errorf("ipfs id: %w", err)
	}
	return gjson.GetBytes(body, "ID").String(), nil
}

// checkIPFSResponse maps the API's error envelope {"Message","Code","Type"}
func checkIPFSResponse(resp *req.Resp) ([]byte, error) {
	body, err := resp.ToBytes()
	if err != nil {
		return nil, err
	}
	status := resp.Response().StatusCode
	if status == http.StatusOK {
		return body, nil
	}

	msg := gjson.GetBytes(body, "Message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	lower := strings.ToLower(msg)
	if status == http.StatusNotFound || strings.Contains(lower, "not found") ||
		strings.Contains(lower, "no link named") || strings.Contains(lower, "invalid") {
		return nil, fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return nil, fmt.Errorf("status %d: %s", status, msg)
}
