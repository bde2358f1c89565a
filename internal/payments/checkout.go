package payments

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/config"
	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
)

// Checkout tells the client where to complete an out-of-band payment.
type Checkout struct {
	MerchantRef string
	RedirectURL string
}

// Linker builds provider redirect targets for the configured mode.
type Linker struct {
	baseURL string
	mode    config.Mode
}

func NewLinker(baseURL string, mode config.Mode) *Linker {
	return &Linker{baseURL: strings.TrimRight(baseURL, "/"), mode: mode}
}

// Link returns the checkout for an intent. Cash has no redirect.
func (l *Linker) Link(intent domain.PaymentIntent) Checkout {
	out := Checkout{MerchantRef: intent.MerchantRef}
	if !intent.Method.Deferred() {
		return out
	}
	path := "/" + string(intent.Method)
	if l.mode != config.ModeLive {
		path = "/sandbox" + path
	}
	q := url.Values{}
	q.Set("ref", intent.MerchantRef)
	q.Set("amount", strconv.FormatInt(intent.Amount, 10))
	out.RedirectURL = l.baseURL + path + "?" + q.Encode()
	return out
}
