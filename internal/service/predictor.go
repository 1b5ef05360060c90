package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"valuator/internal/config"
	"valuator/internal/logger"
	"valuator/internal/model"
	"valuator/internal/utils"
)

// Dispatcher sends a payload to the prediction service and returns the
// decoded response object together with its compact JSON text
type Dispatcher interface {
	Predict(ctx context.Context, d *model.Domain, payload model.Payload, token string) (map[string]interface{}, string, error)
}

// PredictionClient talks to the remote valuation backend
type PredictionClient struct {
	config     *config.BackendConfig
	httpClient *http.Client
	msgs       *utils.Messages
}

// NewPredictionClient creates a client whose cookie jar keeps credentials
// the backend sets across requests
func NewPredictionClient(cfg *config.BackendConfig, msgs *utils.Messages) *PredictionClient {
	jar, _ := cookiejar.New(nil)
	if msgs == nil {
		msgs = utils.NewMessages("en")
	}
	return &PredictionClient{
		config: cfg,
		msgs:   msgs,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// Predict performs exactly one POST to {BaseURL}{domain.Path}
func (c *PredictionClient) Predict(ctx context.Context, d *model.Domain, payload model.Payload, token string) (map[string]interface{}, string, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.config.EndpointURL(d.Path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		logger.Warn("prediction request failed", "domain", d.ID, "url", url, "error", err)
		return nil, "", &TransportError{
			Err:     err,
			Message: c.msgs.Text("transport.network", map[string]interface{}{"Reason": err.Error()}),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &TransportError{
			Status:  resp.StatusCode,
			Err:     err,
			Message: c.msgs.Text("transport.network", map[string]interface{}{"Reason": err.Error()}),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(body))
		logger.Warn("prediction service answered with error status",
			"domain", d.ID, "status", resp.StatusCode, "body", utils.TruncateRunes(text, 200))
		return nil, "", &TransportError{
			Status:  resp.StatusCode,
			Body:    text,
			Message: c.msgs.Text("transport.status", map[string]interface{}{"Status": resp.StatusCode, "Body": text}),
		}
	}

	obj, raw, err := utils.DecodeObject(body)
	if err != nil {
		return nil, "", &TransportError{
			Status:  resp.StatusCode,
			Body:    string(body),
			Err:     err,
			Message: c.msgs.Text("transport.decode", map[string]interface{}{"Reason": err.Error()}),
		}
	}

	return obj, raw, nil
}

// Ensure PredictionClient implements Dispatcher
var _ Dispatcher = (*PredictionClient)(nil)
