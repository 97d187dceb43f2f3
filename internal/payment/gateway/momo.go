package gateway

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// MoMo（作成APIでpayUrlを受け取り、IPNはJSON POST）。
// 署名はキー昇順で連結した文字列へのHMAC-SHA256。
type MoMo struct {
	partnerCode string
	accessKey   string
	secretKey   string
	endpoint    string
	returnURL   string
	ipnURL      string
	client      *http.Client
}

func NewMoMo(partnerCode, accessKey, secretKey, endpoint, returnURL, ipnURL string) *MoMo {
	return &MoMo{
		partnerCode: partnerCode,
		accessKey:   accessKey,
		secretKey:   secretKey,
		endpoint:    endpoint,
		returnURL:   returnURL,
		ipnURL:      ipnURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *MoMo) Name() string { return "MOMO" }

type momoCreateRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IpnURL      string `json:"ipnUrl"`
	RequestType string `json:"requestType"`
	ExtraData   string `json:"extraData"`
	Lang        string `json:"lang"`
	Signature   string `json:"signature"`
}

type momoCreateResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
}

func (g *MoMo) BuildPaymentURL(o PaymentOrder, _ string) (string, error) {
	if o.OrderCode == "" || o.Amount <= 0 {
		return "", fmt.Errorf("momo: invalid order")
	}

	requestID := uuid.NewString()
	rawSig := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=captureWallet",
		g.accessKey, o.Amount, "", g.ipnURL, o.OrderCode, o.OrderInfo, g.partnerCode, g.returnURL, requestID,
	)

	req := momoCreateRequest{
		PartnerCode: g.partnerCode,
		RequestID:   requestID,
		Amount:      o.Amount,
		OrderID:     o.OrderCode,
		OrderInfo:   o.OrderInfo,
		RedirectURL: g.returnURL,
		IpnURL:      g.ipnURL,
		RequestType: "captureWallet",
		ExtraData:   "",
		Lang:        "vi",
		Signature:   hmacSHA256(g.secretKey, rawSig),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Post(g.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("momo: create request failed: %w", err)
	}
	defer resp.Body.Close()

	var out momoCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("momo: bad create response: %w", err)
	}
	if out.ResultCode != 0 || out.PayURL == "" {
		return "", fmt.Errorf("momo: create rejected: %d %s", out.ResultCode, out.Message)
	}
	return out.PayURL, nil
}

type momoIPN struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

func (g *MoMo) ParseCallback(raw []byte) (CallbackResult, error) {
	var ipn momoIPN
	if err := json.Unmarshal(raw, &ipn); err != nil {
		return CallbackResult{}, fmt.Errorf("momo: bad ipn body: %w", err)
	}
	if ipn.OrderID == "" || ipn.TransID == 0 {
		return CallbackResult{}, fmt.Errorf("momo: missing fields")
	}

	rawSig := fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		g.accessKey, ipn.Amount, ipn.ExtraData, ipn.Message, ipn.OrderID, ipn.OrderInfo,
		ipn.OrderType, ipn.PartnerCode, ipn.PayType, ipn.RequestID, ipn.ResponseTime,
		ipn.ResultCode, ipn.TransID,
	)
	expected := hmacSHA256(g.secretKey, rawSig)
	if !hmac.Equal([]byte(ipn.Signature), []byte(expected)) {
		return CallbackResult{}, fmt.Errorf("momo: signature mismatch")
	}

	return CallbackResult{
		OrderCode:      ipn.OrderID,
		TransactionRef: fmt.Sprintf("MOMO-%d", ipn.TransID),
		Success:        ipn.ResultCode == 0,
	}, nil
}

// MoMoのIPNは204で受領を示す
func (g *MoMo) Ack() AckResponse {
	return AckResponse{Status: 204}
}

func hmacSHA256(secret, data string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
