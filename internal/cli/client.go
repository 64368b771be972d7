package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shaiso/leadmailer/internal/domain"
)

// RearmRequest — тело запроса повторной постановки лида в очередь.
type RearmRequest struct {
	Value      int    `json:"value"`
	Unit       string `json:"unit"`
	TargetTime string `json:"target_time,omitempty"`
}

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client — HTTP-клиент для ops API работающего leadmailer serve.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для ops API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// цикл выполняется синхронно, запас на большую пачку
			Timeout: 10 * time.Minute,
		},
	}
}

// TriggerCycle запускает цикл диспетчера на сервере.
// Отчёт возвращается и для skipped (409), и для failed (500).
func (c *Client) TriggerCycle() (*domain.CycleReport, error) {
	resp, err := c.do(http.MethodPost, "/api/v1/cycles", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusConflict, http.StatusInternalServerError:
	default:
		return nil, c.checkError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var dr dataResponse
	if err := json.Unmarshal(body, &dr); err != nil || len(dr.Data) == 0 {
		return nil, c.errorFromBody(resp.StatusCode, body)
	}

	var report domain.CycleReport
	if err := json.Unmarshal(dr.Data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// LastCycle возвращает отчёт последнего завершённого цикла.
func (c *Client) LastCycle() (*domain.CycleReport, error) {
	var report domain.CycleReport
	err := c.get("/api/v1/cycles/last", &report)
	return &report, err
}

// QualifyLead квалифицирует лида на сервере.
func (c *Client) QualifyLead(id int64) (*domain.Lead, error) {
	var lead domain.Lead
	err := c.post("/api/v1/leads/"+strconv.FormatInt(id, 10)+"/qualify", nil, &lead)
	return &lead, err
}

// RearmLead повторно ставит лида в очередь с новым правилом задержки.
func (c *Client) RearmLead(id int64, req RearmRequest) (*domain.Lead, error) {
	var lead domain.Lead
	err := c.post("/api/v1/leads/"+strconv.FormatInt(id, 10)+"/rearm", req, &lead)
	return &lead, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return c.errorFromBody(resp.StatusCode, body)
}

func (c *Client) errorFromBody(status int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error.Code == "" {
		return fmt.Errorf("API error: HTTP %d", status)
	}
	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
