package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/visitplan/backend/internal/models"
)

// HTTPExplainer asks an external service for the explanation lines.
type HTTPExplainer struct {
	BaseURL string
	Client  *http.Client
}

type requestBody struct {
	Conflict models.Conflict `json:"conflict"`
	Solution models.Solution `json:"solution"`
}

type responseBody struct {
	Lines []string `json:"lines"`
}

func NewHTTPExplainer(baseURL string) *HTTPExplainer {
	return &HTTPExplainer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (h *HTTPExplainer) Explain(ctx context.Context, c models.Conflict, s models.Solution) ([]string, error) {
	b, err := json.Marshal(requestBody{Conflict: c, Solution: s})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/explain", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("explainer service error: %s", resp.Status)
	}

	var r responseBody
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode explainer response: %w", err)
	}
	if len(r.Lines) == 0 {
		return nil, fmt.Errorf("explainer returned no lines")
	}
	return r.Lines, nil
}
