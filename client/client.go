package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/competitionmonitor/models"
	"github.com/a-h/jsonapi"
)

func New(baseURL, apiKey string) Client {
	return Client{
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type Client struct {
	baseURL string
	apiKey  string
}

func (c Client) AnalyzeTextGet(ctx context.Context, text, competitor string, score bool) (resp models.AnalyzeResponse, err error) {
	q := map[string]string{"text": text}
	if competitor != "" {
		q["competitor"] = competitor
	}
	if score {
		q["score"] = "true"
	}
	u, err := jsonapi.URL(c.baseURL).Path("analyzetext").Query(q).String()
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, u, &resp)
	return resp, err
}

func (c Client) AnalyzeTextPost(ctx context.Context, req models.AnalyzeRequest) (resp models.AnalyzeResponse, err error) {
	u, err := jsonapi.URL(c.baseURL).Path("analyzetext").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.AnalyzeRequest, models.AnalyzeResponse](ctx, u, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

func (c Client) AskPost(ctx context.Context, req models.AskRequest) (resp models.AskResponse, err error) {
	u, err := jsonapi.URL(c.baseURL).Path("ask").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.AskRequest, models.AskResponse](ctx, u, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

func (c Client) ParsePost(ctx context.Context, req models.ParseRequest) (resp models.ParseResponse, err error) {
	u, err := jsonapi.URL(c.baseURL).Path("parse").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.ParseRequest, models.ParseResponse](ctx, u, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

func (c Client) ComparePost(ctx context.Context, req models.CompareRequest) (resp models.CompareResponse, err error) {
	u, err := jsonapi.URL(c.baseURL).Path("compare").String()
	if err != nil {
		return resp, err
	}
	return jsonapi.Post[models.CompareRequest, models.CompareResponse](ctx, u, req, jsonapi.WithRequestHeader("Authorization", c.apiKey))
}

func (c Client) ChatPost(ctx context.Context, request models.ChatPostRequest, f func(ctx context.Context, chunk []byte) error) (err error) {
	u, err := jsonapi.URL(c.baseURL).Path("chat").String()
	if err != nil {
		return err
	}
	return c.postStream(ctx, u, request, f)
}

func (c Client) HistoryGet(ctx context.Context, limit, offset int) (resp models.HistoryResponse, err error) {
	q := map[string]string{}
	if limit > 0 {
		q["limit"] = strconv.Itoa(limit)
	}
	if offset > 0 {
		q["offset"] = strconv.Itoa(offset)
	}
	u, err := jsonapi.URL(c.baseURL).Path("history").Query(q).String()
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, u, &resp)
	return resp, err
}

func (c Client) HistoryStatsGet(ctx context.Context) (resp models.HistoryStats, err error) {
	u, err := jsonapi.URL(c.baseURL).Path("history", "stats").String()
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, u, &resp)
	return resp, err
}

func (c Client) HistoryDelete(ctx context.Context) (deleted int64, err error) {
	u, err := jsonapi.URL(c.baseURL).Path("history").String()
	if err != nil {
		return 0, err
	}
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	err = c.do(ctx, http.MethodDelete, u, &resp)
	return resp.Deleted, err
}

func (c Client) AnalysisGet(ctx context.Context, id int64) (resp models.AnalyzeResponse, err error) {
	u, err := jsonapi.URL(c.baseURL).Path("analysis", strconv.FormatInt(id, 10)).String()
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, u, &resp)
	return resp, err
}

func (c Client) AnalysisDelete(ctx context.Context, id int64) (err error) {
	u, err := jsonapi.URL(c.baseURL).Path("analysis", strconv.FormatInt(id, 10)).String()
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, u, nil)
}

// ExportPDF writes the PDF report of an analysis to w.
func (c Client) ExportPDF(ctx context.Context, id int64, w io.Writer) (err error) {
	u, err := jsonapi.URL(c.baseURL).Path("export-pdf", strconv.FormatInt(id, 10)).String()
	if err != nil {
		return err
	}
	res, err := c.raw(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if _, err = io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

func (c Client) HealthGet(ctx context.Context) (resp models.HealthResponse, err error) {
	u, err := jsonapi.URL(c.baseURL).Path("health").String()
	if err != nil {
		return resp, err
	}
	err = c.do(ctx, http.MethodGet, u, &resp)
	return resp, err
}

// raw performs the request, returning an error for non-2xx responses.
func (c Client) raw(ctx context.Context, method, url string, body io.Reader) (res *http.Response, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	res, err = jsonapi.Raw(httpReq, jsonapi.WithRequestHeader("Authorization", c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer res.Body.Close()
		body, _ := io.ReadAll(res.Body)
		return nil, jsonapi.InvalidStatusError{
			Status: res.StatusCode,
			Body:   string(body),
		}
	}
	return res, nil
}

func (c Client) do(ctx context.Context, method, url string, resp any) (err error) {
	res, err := c.raw(ctx, method, url, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if resp == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c Client) postStream(ctx context.Context, url string, req any, f func(ctx context.Context, chunk []byte) error) (err error) {
	buf, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	res, err := c.raw(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	chunk := make([]byte, 1024)
	for {
		n, err := res.Body.Read(chunk)
		if n > 0 {
			if err := f(ctx, chunk[:n]); err != nil {
				return fmt.Errorf("failed to process chunk: %w", err)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read response body: %w", err)
		}
	}
	return nil
}
