package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"bitbucket.org/mmdatafocus/qist_backend/models"
	"bitbucket.org/mmdatafocus/qist_backend/remote"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   []byte
}

func newGatewayStub(t *testing.T, status int, response string) (*remote.RestClient, *recordedRequest) {
	t.Helper()
	last := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Method = r.Method
		last.Path = r.URL.Path
		last.Query = r.URL.RawQuery
		last.APIKey = r.Header.Get("X-API-Key")
		body, _ := io.ReadAll(r.Body)
		last.Body = body
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client, err := remote.NewRestClient(srv.URL, "secret")
	require.NoError(t, err)
	return client, last
}

func TestNewRestClientRejectsEmptyURL(t *testing.T) {
	_, err := remote.NewRestClient("  ", "key")
	assert.Error(t, err)
}

func TestPingProbesProfiles(t *testing.T) {
	client, last := newGatewayStub(t, http.StatusOK, `{"data":[]}`)

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/v1/profiles", last.Path)
	assert.Equal(t, "limit=1", last.Query)
	assert.Equal(t, "secret", last.APIKey)
}

func TestSelectCustomersParsesDataEnvelope(t *testing.T) {
	client, last := newGatewayStub(t, http.StatusOK,
		`{"data":[{"id":"c1","profile_id":"p1","name":"Ahmed","total_amount":"1500"}]}`)

	customers, err := client.SelectCustomers(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "profile_id=p1", last.Query)
	require.Len(t, customers, 1)
	assert.Equal(t, "c1", customers[0].ID)
	assert.True(t, customers[0].TotalAmount.Equal(decimal.NewFromInt(1500)))
}

func TestInsertCustomerPostsJSON(t *testing.T) {
	client, last := newGatewayStub(t, http.StatusCreated, `{}`)

	customer := &models.Customer{ID: "c1", ProfileId: "p1", Name: "Ahmed"}
	require.NoError(t, client.InsertCustomer(context.Background(), customer))

	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/v1/customers", last.Path)

	var sent models.Customer
	require.NoError(t, json.Unmarshal(last.Body, &sent))
	assert.Equal(t, "c1", sent.ID)
	assert.Equal(t, "Ahmed", sent.Name)
}

func TestUpdateAndDeleteTargetRecordPath(t *testing.T) {
	client, last := newGatewayStub(t, http.StatusOK, `{}`)

	require.NoError(t, client.UpdateCustomer(context.Background(), &models.Customer{ID: "c1"}))
	assert.Equal(t, http.MethodPatch, last.Method)
	assert.Equal(t, "/v1/customers/c1", last.Path)

	require.NoError(t, client.DeleteInstallment(context.Background(), "i9"))
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, "/v1/installments/i9", last.Path)
}

func TestSelectInstallmentsByCustomersJoinsIds(t *testing.T) {
	client, last := newGatewayStub(t, http.StatusOK, `{"data":[]}`)

	_, err := client.SelectInstallmentsByCustomers(context.Background(), []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/installments", last.Path)
	assert.Equal(t, "customer_ids=c1%2Cc2", last.Query)
}

func TestSelectInstallmentsByCustomersSkipsEmptyList(t *testing.T) {
	client, last := newGatewayStub(t, http.StatusOK, `{"data":[]}`)

	installments, err := client.SelectInstallmentsByCustomers(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, installments)
	assert.Empty(t, last.Method)
}

func TestErrorsCarryStatusAndBody(t *testing.T) {
	client, _ := newGatewayStub(t, http.StatusBadGateway, `upstream unavailable`)

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote api error 502")
	assert.Contains(t, err.Error(), "upstream unavailable")
}
