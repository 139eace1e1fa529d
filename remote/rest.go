package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/qist_backend/models"
)

// RestClient talks to the hosted data gateway over HTTP/JSON. The gateway
// exposes each entity table at /v1/<table> with filtered list, insert,
// update-by-id and delete-by-id.
type RestClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

var _ Client = (*RestClient)(nil)

func NewRestClient(baseURL string, apiKey string) (*RestClient, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("remote api base url is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("REMOTE_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}

	return &RestClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *RestClient) do(ctx context.Context, method string, path string, params url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set(c.apiKeyHdr, c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote api error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return err
		}
	}
	return nil
}

func (c *RestClient) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("limit", "1")
	var parsed struct {
		Data []json.RawMessage `json:"data"`
	}
	return c.do(ctx, http.MethodGet, "/v1/profiles", params, nil, &parsed)
}

func (c *RestClient) SelectProfiles(ctx context.Context) ([]models.Profile, error) {
	var parsed struct {
		Data []models.Profile `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/profiles", nil, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func (c *RestClient) InsertProfile(ctx context.Context, rec *models.Profile) error {
	return c.do(ctx, http.MethodPost, "/v1/profiles", nil, rec, nil)
}

func (c *RestClient) UpdateProfile(ctx context.Context, rec *models.Profile) error {
	return c.do(ctx, http.MethodPatch, "/v1/profiles/"+rec.ID, nil, rec, nil)
}

func (c *RestClient) DeleteProfile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/profiles/"+id, nil, nil, nil)
}

func (c *RestClient) SelectCustomers(ctx context.Context, profileId string) ([]models.Customer, error) {
	params := url.Values{}
	params.Set("profile_id", profileId)
	var parsed struct {
		Data []models.Customer `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/customers", params, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func (c *RestClient) SelectCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+id, nil, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *RestClient) InsertCustomer(ctx context.Context, rec *models.Customer) error {
	return c.do(ctx, http.MethodPost, "/v1/customers", nil, rec, nil)
}

func (c *RestClient) UpdateCustomer(ctx context.Context, rec *models.Customer) error {
	return c.do(ctx, http.MethodPatch, "/v1/customers/"+rec.ID, nil, rec, nil)
}

func (c *RestClient) DeleteCustomer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/customers/"+id, nil, nil, nil)
}

func (c *RestClient) SelectInstallments(ctx context.Context, customerId string) ([]models.Installment, error) {
	params := url.Values{}
	params.Set("customer_id", customerId)
	var parsed struct {
		Data []models.Installment `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/installments", params, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func (c *RestClient) SelectInstallmentsByCustomers(ctx context.Context, customerIds []string) ([]models.Installment, error) {
	if len(customerIds) == 0 {
		return nil, nil
	}
	params := url.Values{}
	params.Set("customer_ids", strings.Join(customerIds, ","))
	var parsed struct {
		Data []models.Installment `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/installments", params, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func (c *RestClient) InsertInstallment(ctx context.Context, rec *models.Installment) error {
	return c.do(ctx, http.MethodPost, "/v1/installments", nil, rec, nil)
}

func (c *RestClient) UpdateInstallment(ctx context.Context, rec *models.Installment) error {
	return c.do(ctx, http.MethodPatch, "/v1/installments/"+rec.ID, nil, rec, nil)
}

func (c *RestClient) DeleteInstallment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/installments/"+id, nil, nil, nil)
}

func (c *RestClient) SelectProjects(ctx context.Context, profileId string) ([]models.Project, error) {
	params := url.Values{}
	params.Set("profile_id", profileId)
	var parsed struct {
		Data []models.Project `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/projects", params, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func (c *RestClient) SelectProjectsByCustomer(ctx context.Context, customerId string) ([]models.Project, error) {
	params := url.Values{}
	params.Set("customer_id", customerId)
	var parsed struct {
		Data []models.Project `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/projects", params, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func (c *RestClient) InsertProject(ctx context.Context, rec *models.Project) error {
	return c.do(ctx, http.MethodPost, "/v1/projects", nil, rec, nil)
}

func (c *RestClient) UpdateProject(ctx context.Context, rec *models.Project) error {
	return c.do(ctx, http.MethodPatch, "/v1/projects/"+rec.ID, nil, rec, nil)
}

func (c *RestClient) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/projects/"+id, nil, nil, nil)
}

func (c *RestClient) SelectInvestments(ctx context.Context, profileId string) ([]models.Investment, error) {
	params := url.Values{}
	params.Set("profile_id", profileId)
	var parsed struct {
		Data []models.Investment `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/investments", params, nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Data, nil
}

func (c *RestClient) InsertInvestment(ctx context.Context, rec *models.Investment) error {
	return c.do(ctx, http.MethodPost, "/v1/investments", nil, rec, nil)
}

func (c *RestClient) UpdateInvestment(ctx context.Context, rec *models.Investment) error {
	return c.do(ctx, http.MethodPatch, "/v1/investments/"+rec.ID, nil, rec, nil)
}

func (c *RestClient) DeleteInvestment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/investments/"+id, nil, nil, nil)
}
