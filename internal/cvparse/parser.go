// Package cvparse calls the external CV-extraction service and normalizes its
// output into candidate attributes. When the service is unreachable it
// degrades to deriving a name from the uploaded filename instead of failing.
package cvparse

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"recruiter-go/internal/logger"
	"recruiter-go/internal/types"
)

// ErrExternalService marks hard extraction failures: HTTP error statuses,
// malformed responses, and transport errors that are not unreachability.
var ErrExternalService = errors.New("extraction service failure")

// DefaultTimeout bounds one extraction call.
const DefaultTimeout = 30 * time.Second

// Request identifies one resume to parse. Exactly one of Content and FileKey
// should be set: Content carries the file bytes inline (base64 on the wire),
// FileKey references an object in the shared store for deployments where the
// extraction service reads storage directly.
type Request struct {
	Filename string
	Content  []byte
	FileKey  string
}

// wireRequest is the extraction-service body: inline mode carries
// {file_content, file_type, file_name}, reference mode {file_key, file_type}.
type wireRequest struct {
	FileContent string `json:"file_content,omitempty"`
	FileType    string `json:"file_type"`
	FileName    string `json:"file_name,omitempty"`
	FileKey     string `json:"file_key,omitempty"`
}

// Parser is the HTTP client for the extraction service.
type Parser struct {
	endpoint string
	client   *http.Client
}

// NewParser builds a Parser for the service at baseURL. A non-positive
// timeout falls back to DefaultTimeout.
func NewParser(baseURL string, timeout time.Duration) *Parser {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Parser{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/v1/parse",
		client:   &http.Client{Timeout: timeout},
	}
}

// Parse sends the resume to the extraction service and returns normalized
// candidate attributes. Unreachability (connection refused or timeout) is the
// only condition handled by the filename fallback; every other failure is
// returned wrapped in ErrExternalService.
func (p *Parser) Parse(ctx context.Context, req Request) (*types.CandidateAttributes, error) {
	payload := wireRequest{FileType: fileTypeOf(req.Filename)}
	if req.FileKey != "" {
		payload.FileKey = req.FileKey
	} else {
		payload.FileName = req.Filename
		payload.FileContent = base64.StdEncoding.EncodeToString(req.Content)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrExternalService, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrExternalService, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if isUnreachable(err) {
			logger.Warn().Err(err).
				Str("filename", req.Filename).
				Msg("Extraction service unreachable, using filename fallback")
			return FallbackFromFilename(req.Filename), nil
		}
		return nil, fmt.Errorf("%w: calling extraction service: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrExternalService, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrExternalService, err)
	}
	return ExtractInfo(raw), nil
}

// fileTypeOf derives the file_type payload field from the filename extension,
// "pdf" for "cv.pdf". Extensionless filenames yield an empty type.
func fileTypeOf(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// isUnreachable reports whether err is a connection-refused or timeout error.
// HTTP error statuses never reach here, they are not transport errors.
func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// FallbackFromFilename derives minimal attributes from an uploaded filename.
// "DUPONT_Jean.pdf" becomes "Jean DUPONT"; a filename without an underscore
// is used as the name verbatim (sans extension). All other fields keep their
// safe defaults.
func FallbackFromFilename(filename string) *types.CandidateAttributes {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name := base
	if parts := strings.Split(base, "_"); len(parts) >= 2 {
		name = parts[1] + " " + parts[0]
	}
	attrs := emptyAttributes()
	attrs.Name = name
	return attrs
}

// ExtractInfo normalizes the raw service response: strings default to empty,
// list fields to empty slices, experience to 0. Unknown shapes degrade to the
// default instead of erroring.
func ExtractInfo(raw map[string]interface{}) *types.CandidateAttributes {
	attrs := emptyAttributes()
	if raw == nil {
		return attrs
	}
	attrs.Name = stringField(raw, "name")
	attrs.Email = stringField(raw, "email")
	attrs.Phone = stringField(raw, "phone")
	attrs.Location = stringField(raw, "location")
	attrs.Skills = stringSliceField(raw, "skills")
	attrs.Experience = intField(raw, "experience")
	attrs.Education = mapSliceField(raw, "education")
	attrs.WorkExperience = mapSliceField(raw, "workExperience")
	attrs.Languages = stringSliceField(raw, "languages")
	return attrs
}

func emptyAttributes() *types.CandidateAttributes {
	return &types.CandidateAttributes{
		Skills:         []string{},
		Education:      []map[string]interface{}{},
		WorkExperience: []map[string]interface{}{},
		Languages:      []string{},
	}
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key].(string); ok {
		return v
	}
	return ""
}

func intField(raw map[string]interface{}, key string) int {
	switch v := raw[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func stringSliceField(raw map[string]interface{}, key string) []string {
	items, ok := raw[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapSliceField(raw map[string]interface{}, key string) []map[string]interface{} {
	items, ok := raw[key].([]interface{})
	if !ok {
		return []map[string]interface{}{}
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
