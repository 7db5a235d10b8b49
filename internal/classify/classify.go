// Package classify is the boundary to the X-ray model collaborator. The
// models themselves run behind a serving endpoint; this side only ships
// image bytes and reads back ordered label/confidence pairs.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Sanjarbek17/MedAI/internal/models"
)

// Model selectors understood by the serving endpoint.
const (
	ModelChestCheck  = "only_chest"
	ModelFourClasses = "four_classes"
	ModelIsCovid     = "is_covid"
)

// Classifier labels an image with one of the pre-trained models.
type Classifier interface {
	Classify(ctx context.Context, model string, image io.Reader) ([]models.Prediction, error)
}

// HTTPClient posts multipart requests to a model-serving endpoint.
type HTTPClient struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

func (h *HTTPClient) Classify(ctx context.Context, model string, image io.Reader) ([]models.Prediction, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "image")
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, image); err != nil {
		return nil, err
	}
	if err := mw.WriteField("model", model); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/classify", h.Endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned %s", resp.Status)
	}

	var out []models.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("classifier returned no results")
	}
	return out, nil
}
