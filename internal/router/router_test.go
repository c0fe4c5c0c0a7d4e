package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loyalty/config"
	"loyalty/internal/middleware"
	"loyalty/internal/testutil"
	"loyalty/internal/ws"
	"loyalty/pkg/passkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const passType = "pass.com.example.loyalty"

type client struct {
	t      *testing.T
	engine *gin.Engine
}

func newClient(t *testing.T) *client {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:     config.ServerConfig{Env: "test", PublicBaseURL: "http://loyalty.test"},
		JWT:        config.JWTConfig{AccessSecret: "test-secret", AccessExpiry: time.Hour, Issuer: "loyalty", CookieName: "session"},
		PassKit:    config.PassKitConfig{AuthTokenSecret: "pass-secret"},
		Settlement: config.SettlementConfig{LockTimeout: 5 * time.Second},
		RateLimit:  config.RateLimitConfig{PerSecond: 1000, Burst: 1000},
	}
	builder := passkit.NewBuilder(passkit.Config{
		PassTypeIdentifier: passType,
		TeamIdentifier:     "TEAM123456",
		WebServiceURL:      "http://loyalty.test/passkit",
		AssetDir:           t.TempDir(),
	}, nil, zap.NewNop())

	engine := Setup(cfg, testutil.NewTestDB(t), Deps{Builder: builder, Hub: ws.NewHub(), Log: zap.NewNop()})
	return &client{t: t, engine: engine}
}

func (c *client) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signup creates a business owned by username and returns a session token.
func (c *client) signup(business, username string) string {
	body := `{"business_name":"` + business + `","reward_rate":"1.5","redemption_points":100,` +
		`"redemption_rate":"0.10","username":"` + username + `","password":"s3cret-pass"}`
	w := c.do(http.MethodPost, "/accounts/business-signup/", body, nil)
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodPost, "/accounts/login/", `{"username":"`+username+`","password":"s3cret-pass"}`, nil)
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(c.t, w)["access_token"].(string)
	require.NotEmpty(c.t, token)
	return token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (c *client) station(session, name string) (id, apiToken string) {
	w := c.do(http.MethodPost, "/api/stations/", `{"name":"`+name+`"}`, bearer(session))
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(c.t, w)
	return body["id"].(string), body["api_token"].(string)
}

func TestHealth(t *testing.T) {
	c := newClient(t)
	w := c.do(http.MethodGet, "/api/health/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAccountSession(t *testing.T) {
	c := newClient(t)
	session := c.signup("Corner Cafe", "owner")

	w := c.do(http.MethodGet, "/accounts/me/", "", bearer(session))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "owner", decode(t, w)["username"])

	w = c.do(http.MethodPost, "/accounts/login/", `{"username":"owner","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid username or password.", decode(t, w)["detail"])

	w = c.do(http.MethodPost, "/accounts/business-signup/", `{"business_name":"X"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]interface{})
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "reward_rate")

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/accounts/logout/", "", bearer(session)).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/accounts/me/", "", bearer(session)).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/stations/", "", nil).Code)
}

func TestIssueSettleAndWalletFlow(t *testing.T) {
	c := newClient(t)
	session := c.signup("Corner Cafe", "owner")
	stationID, stationToken := c.station(session, "Front Counter")
	posHeaders := bearer(session)
	posHeaders[middleware.StationTokenHeader] = stationToken

	w := c.do(http.MethodPost, "/api/stations/", `{}`, bearer(session))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["fields"], "name")

	w = c.do(http.MethodPost, "/api/loyaltycards/issue/", `{"customer_name":"Dana","phone_number":"(555) 123-4567"}`, posHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	issued := decode(t, w)
	card := issued["loyalty_card"].(map[string]interface{})
	cardToken := card["token"].(string)
	authToken := card["authentication_token"].(string)
	assert.Equal(t, cardToken, card["qr_payload"])
	assert.Contains(t, issued["prepared_pass_url"], "/api/stations/"+stationID+"/prepared-pass/?token=")

	w = c.do(http.MethodPost, "/api/transactions/", `{"loyalty_card_id":"`+cardToken+`","amount":"12.00"}`, posHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 18, decode(t, w)["points_earned"])

	w = c.do(http.MethodPost, "/api/transactions/", `{"amount":"5"}`, bearer(session))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodGet, "/api/stations/"+stationID+"/prepared-pass/?token="+stationToken+"&clear=false", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, cardToken, decode(t, w)["qr_payload"])

	w = c.do(http.MethodGet, "/api/stations/"+stationID+"/prepared-pass/?token=wrong", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = c.do(http.MethodGet, "/api/stations/"+stationID+"/prepared-pass/?token="+stationToken+"&platform=apple", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.apple.pkpass", w.Header().Get("Content-Type"))

	w = c.do(http.MethodGet, "/api/stations/"+stationID+"/prepared-pass/?token="+stationToken, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	regPath := "/passkit/v1/devices/dev-1/registrations/" + passType + "/" + cardToken
	passAuth := map[string]string{"Authorization": "ApplePass " + authToken}
	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, regPath, `{"pushToken":"abc"}`, passAuth).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, regPath, `{"pushToken":"def"}`, passAuth).Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, regPath, `{}`, passAuth).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, regPath, `{"pushToken":"abc"}`, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		c.do(http.MethodPost, "/passkit/v1/devices/dev-1/registrations/pass.other/"+cardToken, `{"pushToken":"abc"}`, passAuth).Code)

	w = c.do(http.MethodGet, "/passkit/v1/devices/dev-1/registrations/"+passType, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	serials := decode(t, w)
	assert.Equal(t, []interface{}{cardToken}, serials["serialNumbers"])

	since := serials["lastUpdated"].(string)
	w = c.do(http.MethodGet, "/passkit/v1/devices/dev-1/registrations/"+passType+"?passesUpdatedSince="+since, "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = c.do(http.MethodGet, "/passkit/v1/passes/"+passType+"/"+cardToken, "", passAuth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Last-Modified"))

	assert.Equal(t, http.StatusOK, c.do(http.MethodDelete, regPath, "", passAuth).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodPost, "/passkit/v1/log", `{"logs":["hello"]}`, nil).Code)

	w = c.do(http.MethodGet, "/api/dashboard-data/", "", bearer(session))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["recent_transactions"], 1)
}

func TestSettlementAmountsRenderWithTwoPlaces(t *testing.T) {
	c := newClient(t)
	session := c.signup("Corner Cafe", "owner")
	_, stationToken := c.station(session, "Front Counter")
	posHeaders := bearer(session)
	posHeaders[middleware.StationTokenHeader] = stationToken

	w := c.do(http.MethodPost, "/api/loyaltycards/issue/", `{"customer_name":"Dana","phone_number":"5551234567"}`, posHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cardToken := decode(t, w)["loyalty_card"].(map[string]interface{})["token"].(string)

	w = c.do(http.MethodPost, "/api/transactions/", `{"loyalty_card_id":"`+cardToken+`","amount":"50"}`, posHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"final_amount":"50.00"`)

	w = c.do(http.MethodPost, "/api/transactions/", `{"loyalty_card_id":"`+cardToken+`","amount":50.00,"redeem":true}`, posHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "50.00", body["amount"])
	assert.Equal(t, "45.00", body["final_amount"])
	assert.EqualValues(t, 100, body["points_redeemed"])

	w = c.do(http.MethodGet, "/api/dashboard-data/", "", bearer(session))
	require.Equal(t, http.StatusOK, w.Code)
	recent := decode(t, w)["recent_transactions"].([]interface{})
	require.Len(t, recent, 2)
	assert.Equal(t, "50.00", recent[0].(map[string]interface{})["amount"])
}

func TestSettlementRejectsMalformedAmounts(t *testing.T) {
	c := newClient(t)
	session := c.signup("Corner Cafe", "owner")
	_, stationToken := c.station(session, "Front Counter")
	posHeaders := bearer(session)
	posHeaders[middleware.StationTokenHeader] = stationToken

	w := c.do(http.MethodPost, "/api/loyaltycards/issue/", `{"customer_name":"Dana","phone_number":"5551234567"}`, posHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	cardToken := decode(t, w)["loyalty_card"].(map[string]interface{})["token"].(string)

	for _, amount := range []string{`"12.345"`, `"100000000"`, `100000000000000000000`} {
		w = c.do(http.MethodPost, "/api/transactions/", `{"loyalty_card_id":"`+cardToken+`","amount":`+amount+`}`, posHeaders)
		require.Equal(t, http.StatusBadRequest, w.Code, amount)
		assert.Contains(t, decode(t, w)["fields"], "amount", amount)
	}

	w = c.do(http.MethodGet, "/api/dashboard-data/", "", bearer(session))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["recent_transactions"])
}

func TestStationOfAnotherBusinessIsForbidden(t *testing.T) {
	c := newClient(t)
	ownerA := c.signup("Cafe A", "alice")
	ownerB := c.signup("Cafe B", "bob")
	_, stationToken := c.station(ownerA, "Front")

	headers := bearer(ownerB)
	headers[middleware.StationTokenHeader] = stationToken
	w := c.do(http.MethodPost, "/api/transactions/", `{"amount":"5.00"}`, headers)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Station does not belong to your business.", decode(t, w)["detail"])
}
