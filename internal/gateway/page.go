package gateway

import (
	"html/template"
	"net/http"
)

type page struct {
	Key          string
	ScriptURL    string
	AmountMinor  int64
	Currency     string
	Name         string
	Description  string
	PrefillEmail string
	ThemeColor   string
	Session      string
}

var checkoutPage = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}} checkout</title>
<script src="{{.ScriptURL}}"></script>
</head>
<body>
<p>Opening payment for {{.Description}}...</p>
<script>
function post(path, fields) {
  const form = document.createElement("form");
  form.method = "POST";
  form.action = path;
  fields.session = {{.Session}};
  for (const [k, v] of Object.entries(fields)) {
    const input = document.createElement("input");
    input.type = "hidden";
    input.name = k;
    input.value = v;
    form.appendChild(input);
  }
  document.body.appendChild(form);
  form.submit();
}
const rzp = new Razorpay({
  key: {{.Key}},
  amount: {{.AmountMinor}},
  currency: {{.Currency}},
  name: {{.Name}},
  description: {{.Description}},
  prefill: { email: {{.PrefillEmail}} },
  theme: { color: {{.ThemeColor}} },
  handler: function (r) {
    post("/callback/success", {
      razorpay_payment_id: r.razorpay_payment_id,
      razorpay_order_id: r.razorpay_order_id || "",
      razorpay_signature: r.razorpay_signature || ""
    });
  },
  modal: { ondismiss: function () { post("/callback/dismiss", {}); } }
});
rzp.on("payment.failed", function (r) {
  post("/callback/failure", { description: r.error.description });
});
rzp.open();
</script>
</body>
</html>
`))

var donePage = template.Must(template.New("done").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Checkout</title></head>
<body><p>{{.}}</p></body></html>
`))

func (s *session) servePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := checkoutPage.Execute(w, s.page); err != nil {
		s.log.WithError(err).Error("render checkout page")
	}
}

func (s *session) renderDone(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := donePage.Execute(w, text); err != nil {
		s.log.WithError(err).Error("render result page")
	}
}
