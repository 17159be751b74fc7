package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// X402Version is the protocol version spoken with clients and the facilitator.
const X402Version = 1

// Header names defined by x402.
const (
	PaymentHeader         = "X-PAYMENT"
	PaymentResponseHeader = "X-PAYMENT-RESPONSE"
)

// usdcDecimals is the number of decimals of USDC on every supported network.
const usdcDecimals = 6

// usdcAssets maps networks to their USDC asset address.
var usdcAssets = map[string]string{
	"solana-devnet": "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
	"solana":        "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	"base-sepolia":  "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	"base":          "0x833589fCD6eDb6E08f4c3C32D4f71b54bdA02913",
}

var errInvalidPrice = errors.New("price must be a positive dollar amount like $0.001")

// PaymentRequirements describes what a client must pay for a resource.
type PaymentRequirements struct {
	Scheme            string         `json:"scheme"`
	Network           string         `json:"network"`
	MaxAmountRequired string         `json:"maxAmountRequired"`
	Resource          string         `json:"resource"`
	Description       string         `json:"description"`
	MimeType          string         `json:"mimeType"`
	PayTo             string         `json:"payTo"`
	MaxTimeoutSeconds int            `json:"maxTimeoutSeconds"`
	Asset             string         `json:"asset"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// PaymentRequiredResponse is the 402 body.
type PaymentRequiredResponse struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error"`
	Accepts     []PaymentRequirements `json:"accepts"`
	Payer       string                `json:"payer,omitempty"`
}

// PaymentPayload is the decoded X-PAYMENT header. The scheme-specific payload
// is forwarded to the facilitator untouched.
type PaymentPayload struct {
	X402Version int             `json:"x402Version"`
	Scheme      string          `json:"scheme"`
	Network     string          `json:"network"`
	Payload     json.RawMessage `json:"payload"`
}

// AtomicAmount converts a dollar price like "$0.001" into USDC base units.
func AtomicAmount(price string) (string, error) {
	trimmed := strings.TrimSpace(price)
	trimmed = strings.TrimPrefix(trimmed, "$")
	amount, ok := new(big.Rat).SetString(trimmed)
	if !ok || amount.Sign() <= 0 {
		return "", fmt.Errorf("%w: %q", errInvalidPrice, price)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(usdcDecimals), nil)
	atomic := new(big.Rat).Mul(amount, new(big.Rat).SetInt(scale))
	if !atomic.IsInt() {
		return "", fmt.Errorf("%w: %q has more than %d decimals", errInvalidPrice, price, usdcDecimals)
	}
	return atomic.Num().String(), nil
}

// USDCAsset returns the USDC asset for network, or "" if unknown.
func USDCAsset(network string) string {
	return usdcAssets[network]
}
