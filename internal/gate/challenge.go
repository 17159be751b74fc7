package gate

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/httputil"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/negotiate"
)

//go:embed templates/challenge.html
var templateFS embed.FS

var challengePage = template.Must(template.ParseFS(templateFS, "templates/challenge.html"))

type challengeView struct {
	Message   string
	Accepts   []PaymentRequirements
	Challenge any
}

// writeChallenge answers a denied request with 402. Browsers navigating to a
// paid route get an HTML page describing the payment; the challenge body is
// embedded in it as JSON for wallet scripts. Everyone else gets the JSON.
func writeChallenge(w http.ResponseWriter, r *http.Request, c *Challenge) {
	if c == nil {
		httputil.WriteJSON(w, http.StatusPaymentRequired, map[string]string{"error": "payment required"})
		return
	}
	for key, values := range c.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	if negotiate.Preferred(r.Header.Get("Accept")) == negotiate.Document {
		if page, ok := renderChallenge(c); ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write(page)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusPaymentRequired, c.Body)
}

func renderChallenge(c *Challenge) ([]byte, bool) {
	view := challengeView{Challenge: c.Body}
	switch body := c.Body.(type) {
	case PaymentRequiredResponse:
		view.Message = body.Error
		view.Accepts = body.Accepts
	case *PaymentRequiredResponse:
		view.Message = body.Error
		view.Accepts = body.Accepts
	}

	var buf bytes.Buffer
	if err := challengePage.Execute(&buf, view); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}
