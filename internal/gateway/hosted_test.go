package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fjod/go_cart/cart-client/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

var testRequest = domain.PaymentRequest{
	AmountMinor: 270099,
	Currency:    "INR",
	StoreName:   "GymApp Store",
	Description: "Order for 2 item(s)",
	ItemCount:   2,
}

func TestLoad_RemembersSuccess(t *testing.T) {
	var hits atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("window.Razorpay = function () {};"))
	}))
	defer srv.Close()

	h := NewHosted(Options{ScriptURL: srv.URL + "/v1/checkout.js"}, srv.Client(), nil, quietLogger())

	require.Error(t, h.Load(context.Background()))

	fail.Store(false)
	require.NoError(t, h.Load(context.Background()))
	require.NoError(t, h.Load(context.Background()))
	assert.Equal(t, int32(2), hits.Load())
}

func TestOpen_RequiresKey(t *testing.T) {
	h := NewHosted(Options{}, nil, nil, quietLogger())

	_, err := h.Open(context.Background(), testRequest)

	assert.ErrorIs(t, err, ErrNoKey)
}

func openTestSession(t *testing.T) (*session, string) {
	t.Helper()
	var announced string
	h := NewHosted(Options{
		Key:        "rzp_test_key",
		ScriptURL:  "https://checkout.example.com/v1/checkout.js",
		ListenAddr: "127.0.0.1:0",
		ThemeColor: "#dc2626",
	}, nil, func(u string) { announced = u }, quietLogger())

	sess, err := h.Open(context.Background(), testRequest)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	require.NotEmpty(t, announced)
	return sess.(*session), announced
}

func postForm(t *testing.T, base, path string, form url.Values) int {
	t.Helper()
	resp, err := http.PostForm(strings.TrimSuffix(base, "/")+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func TestOpen_ServesPaymentPage(t *testing.T) {
	s, base := openTestSession(t)

	resp, err := http.Get(base)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	html := string(body)
	assert.Contains(t, html, `https://checkout.example.com/v1/checkout.js`)
	assert.Contains(t, html, `"rzp_test_key"`)
	assert.Contains(t, html, "270099")
	assert.Contains(t, html, s.id)
}

func TestOpen_SuccessCallback(t *testing.T) {
	s, base := openTestSession(t)

	status := postForm(t, base, "/callback/success", url.Values{
		"session":             {s.id},
		"razorpay_payment_id": {"pay_1"},
		"razorpay_order_id":   {"order_1"},
		"razorpay_signature":  {"sig_1"},
	})
	require.Equal(t, http.StatusOK, status)

	conf := <-s.Succeeded()
	assert.Equal(t, domain.PaymentConfirmation{
		PaymentID:      "pay_1",
		GatewayOrderID: "order_1",
		Signature:      "sig_1",
	}, conf)

	// the first callback wins
	status = postForm(t, base, "/callback/dismiss", url.Values{"session": {s.id}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Empty(t, s.Dismissed())
}

func TestOpen_FailureAndDismissCallbacks(t *testing.T) {
	t.Run("failure", func(t *testing.T) {
		s, base := openTestSession(t)

		status := postForm(t, base, "/callback/failure", url.Values{
			"session":     {s.id},
			"description": {"Card declined"},
		})

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Card declined", <-s.Failed())
	})

	t.Run("dismiss", func(t *testing.T) {
		s, base := openTestSession(t)

		status := postForm(t, base, "/callback/dismiss", url.Values{"session": {s.id}})

		require.Equal(t, http.StatusOK, status)
		<-s.Dismissed()
	})
}

func TestOpen_RejectsForeignSession(t *testing.T) {
	s, base := openTestSession(t)

	status := postForm(t, base, "/callback/success", url.Values{
		"session":             {"someone-else"},
		"razorpay_payment_id": {"pay_1"},
	})
	assert.Equal(t, http.StatusForbidden, status)

	status = postForm(t, base, "/callback/success", url.Values{"session": {s.id}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, s.Succeeded())
}

func TestClose_StopsServer(t *testing.T) {
	s, base := openTestSession(t)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := http.Get(base)
	assert.Error(t, err)
}
