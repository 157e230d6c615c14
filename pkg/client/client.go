package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mrshanahan/notes-service/internal/utils"
	"github.com/mrshanahan/notes-service/pkg/notes"
)

// Client invokes the notes API over HTTP. Token, when set, is sent as
// a bearer credential on every request.
type Client struct {
	URL   string
	Token string
}

func NewClient(url string) *Client {
	return &Client{URL: url}
}

// WithToken returns a copy of the client authenticating with token.
func (c *Client) WithToken(token string) *Client {
	return &Client{URL: c.URL, Token: token}
}

func (c *Client) ListNotes() (*notes.ListNotesResponse, error) {
	resp, err := c.invoke("GET", "/notes/")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var list *notes.ListNotesResponse
	if err := json.Unmarshal(respBytes, &list); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return list, nil
}

func (c *Client) CreateNote(name string) (*notes.Note, error) {
	encName, err := json.Marshal(name)
	if err != nil {
		return nil, fmt.Errorf("error JSON-encoding name: %w", err)
	}
	payload := fmt.Sprintf("{\"name\":%s}", encName)

	resp, err := c.invokeWithPayload("POST", "/notes/", "application/json", strings.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var note *notes.Note
	if err := json.Unmarshal(respBytes, &note); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return note, nil
}

func (c *Client) GetNote(id string) (*notes.Note, error) {
	urlPath := fmt.Sprintf("/notes/%s", id)
	resp, err := c.invoke("GET", urlPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var note *notes.Note
	if err := json.Unmarshal(respBytes, &note); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return note, nil
}

func (c *Client) UpdateNote(id string, name string) (*notes.Note, error) {
	urlPath := fmt.Sprintf("/notes/%s", id)
	encName, err := json.Marshal(name)
	if err != nil {
		return nil, fmt.Errorf("error JSON-encoding name: %w", err)
	}

	payload := fmt.Sprintf("{\"name\":%s}", encName)
	resp, err := c.invokeWithPayload("PUT", urlPath, "application/json", strings.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var note *notes.Note
	if err := json.Unmarshal(respBytes, &note); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return note, nil
}

func (c *Client) DeleteNote(id string) (*notes.DeleteNoteResponse, error) {
	urlPath := fmt.Sprintf("/notes/%s", id)

	resp, err := c.invoke("DELETE", urlPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBytes, err := validateResponse(resp)
	if err != nil {
		return nil, err
	}

	var deleted *notes.DeleteNoteResponse
	if err := json.Unmarshal(respBytes, &deleted); err != nil {
		return nil, fmt.Errorf("error JSON-decoding response body: %w", err)
	}

	return deleted, nil
}

// Private functions

func (c *Client) invoke(method string, path string) (*http.Response, error) {
	return c.invokeWithPayload(method, path, "", nil)
}

func (c *Client) invokeWithPayload(method string, path string, contentType string, body io.Reader) (*http.Response, error) {
	requestUrl, err := url.JoinPath(c.URL, path)
	if err != nil {
		return nil, fmt.Errorf("error building URL path: %w", err)
	}

	req, err := http.NewRequest(method, requestUrl, body)
	if err != nil {
		return nil, fmt.Errorf("error building API request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error invoking API: %w", err)
	}
	return resp, nil
}

func validateResponse(resp *http.Response) ([]byte, error) {
	respBytes, err := utils.ReadToEnd(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp notes.ErrorResponse
		if err := json.Unmarshal(respBytes, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("API error %d (%s): %s", resp.StatusCode, errResp.Error.Code, errResp.Error.Message)
		}
		respStr := strings.TrimSpace(string(respBytes))
		return nil, fmt.Errorf("invalid status code: %d (response: %s)", resp.StatusCode, respStr)
	}

	return respBytes, nil
}
