package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/tagging-ai/tagboard/pkg/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Analyze submits a single text and returns the created record.
func (c *Client) Analyze(ctx context.Context, text string) (models.AnalysisResult, error) {
	req, err := jsonRequest(http.MethodPost, c.paths.Analyze, map[string]string{"text": text}, true)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	var w wireAnalysis
	if err := c.doJSON(ctx, req, &w); err != nil {
		return models.AnalysisResult{}, err
	}
	return w.toModel()
}

// BatchAnalyze uploads a CSV file as the multipart field "file" and returns
// the records the backend created from it.
func (c *Client) BatchAnalyze(ctx context.Context, filename string, content io.Reader) ([]models.AnalysisResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        c.paths.Batch,
		body:        &buf,
		contentType: mw.FormDataContentType(),
		protected:   true,
		accept:      "application/json",
	})
	if err != nil {
		return nil, err
	}

	ws, err := decodeList(body)
	if err != nil {
		return nil, err
	}
	records, dropped := toModels(ws)
	if dropped > 0 {
		c.logger.Warn("dropped malformed batch records", zap.Int("count", dropped))
	}
	return records, nil
}

// History lists the user's records in backend order.
func (c *Client) History(ctx context.Context) ([]models.AnalysisResult, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: c.paths.History, protected: true, accept: "application/json"})
	if err != nil {
		return nil, err
	}

	ws, err := decodeList(body)
	if err != nil {
		return nil, err
	}
	records, dropped := toModels(ws)
	if dropped > 0 {
		c.logger.Warn("dropped malformed history records", zap.Int("count", dropped))
	}
	return records, nil
}

// Update replaces the editable fields of a record and returns the server's
// normalized echo.
func (c *Client) Update(ctx context.Context, id string, d models.Draft) (models.AnalysisResult, error) {
	req, err := jsonRequest(http.MethodPut, c.recordPath(id), fromDraft(d), true)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	var w wireAnalysis
	if err := c.doJSON(ctx, req, &w); err != nil {
		return models.AnalysisResult{}, err
	}
	r, err := w.toModel()
	if err != nil {
		return models.AnalysisResult{}, err
	}
	if r.ID != id {
		return models.AnalysisResult{}, fmt.Errorf("%w: update of %s echoed id %s", ErrMalformedResponse, id, r.ID)
	}
	return r, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: c.recordPath(id), protected: true})
	return err
}

// ExportExcel downloads the spreadsheet export of the user's history.
func (c *Client) ExportExcel(ctx context.Context) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: c.paths.Export, protected: true, accept: xlsxContentType})
}

// decodeList accepts a bare array or an object wrapping it in "results".
func decodeList(body []byte) ([]wireAnalysis, error) {
	var ws []wireAnalysis
	if err := json.Unmarshal(body, &ws); err == nil {
		return ws, nil
	}
	var wrapped struct {
		Results []wireAnalysis `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return wrapped.Results, nil
}
