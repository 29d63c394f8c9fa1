package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hyperjump/chushaku/internal/models"
	"github.com/hyperjump/chushaku/internal/storage"
)

// apiClient talks to a running server so commands do not contend with it for
// the SQLite and Bleve locks.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 2 * time.Minute}}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Jobs        int64         `json:"jobs"`
	Annotations int64         `json:"annotations"`
	Indexed     uint64        `json:"indexed"`
	DiskUsage   storage.Usage `json:"disk_usage"`
}

// annotateResult is what the server returns for an uploaded document.
type annotateResult struct {
	JobID   string
	Matches int
	Content []byte
}

func (c *apiClient) do(method, path string, body io.Reader, contentType string, want int) (*http.Response, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != want {
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return resp, nil
}

func (c *apiClient) doJSON(method, path string, body interface{}, want int, out interface{}) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
		contentType = "application/json"
	}
	resp, err := c.do(method, path, reader, contentType, want)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) search(query *models.SearchQuery) (*models.SearchResponse, error) {
	var response models.SearchResponse
	if err := c.doJSON(http.MethodPost, "/api/v1/search", query, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *apiClient) status() (*statusResponse, error) {
	var s statusResponse
	if err := c.doJSON(http.MethodGet, "/api/v1/status", nil, http.StatusOK, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *apiClient) jobs(offset, limit int) ([]*models.Job, error) {
	var out struct {
		Jobs []*models.Job `json:"jobs"`
	}
	path := fmt.Sprintf("/api/v1/jobs?offset=%d&limit=%d", offset, limit)
	if err := c.doJSON(http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func (c *apiClient) job(id string) (*models.JobDetail, error) {
	var detail models.JobDetail
	if err := c.doJSON(http.MethodGet, "/api/v1/jobs/"+url.PathEscape(id), nil, http.StatusOK, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *apiClient) deleteJob(id string) error {
	return c.doJSON(http.MethodDelete, "/api/v1/jobs/"+url.PathEscape(id), nil, http.StatusOK, nil)
}

func (c *apiClient) report(id string, w io.Writer) error {
	resp, err := c.do(http.MethodGet, "/api/v1/jobs/"+url.PathEscape(id)+"/report", nil, "", http.StatusOK)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *apiClient) annotate(name string, content []byte, phrase string, caseSensitive *bool) (*annotateResult, error) {
	q := url.Values{}
	q.Set("name", name)
	if phrase != "" {
		q.Set("phrase", phrase)
	}
	if caseSensitive != nil {
		q.Set("case_sensitive", strconv.FormatBool(*caseSensitive))
	}
	resp, err := c.do(http.MethodPost, "/api/v1/annotate?"+q.Encode(), bytes.NewReader(content),
		"application/octet-stream", http.StatusOK)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	matches, _ := strconv.Atoi(resp.Header.Get("X-Match-Count"))
	return &annotateResult{JobID: resp.Header.Get("X-Job-ID"), Matches: matches, Content: out}, nil
}

func (c *apiClient) watchList() ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.doJSON(http.MethodGet, "/api/v1/watch/directories", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

func (c *apiClient) watchAdd(path string) error {
	body := map[string]interface{}{"path": path, "scan": true}
	return c.doJSON(http.MethodPost, "/api/v1/watch/directories", body, http.StatusCreated, nil)
}

func (c *apiClient) watchRemove(path string) error {
	return c.doJSON(http.MethodDelete, "/api/v1/watch/directories?path="+url.QueryEscape(path), nil, http.StatusOK, nil)
}
