package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// VNPay（リダイレクト＋IPN型）。
// 署名はソート済みクエリへのHMAC-SHA512。
type VNPay struct {
	tmnCode    string
	hashSecret string
	payURL     string
	returnURL  string
}

func NewVNPay(tmnCode, hashSecret, payURL, returnURL string) *VNPay {
	return &VNPay{
		tmnCode:    tmnCode,
		hashSecret: hashSecret,
		payURL:     payURL,
		returnURL:  returnURL,
	}
}

func (g *VNPay) Name() string { return "VNPAY" }

func (g *VNPay) BuildPaymentURL(o PaymentOrder, clientIP string) (string, error) {
	if o.OrderCode == "" || o.Amount <= 0 {
		return "", fmt.Errorf("vnpay: invalid order")
	}

	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.tmnCode)
	//VNPayは最小単位の100倍で受ける
	params.Set("vnp_Amount", fmt.Sprintf("%d", o.Amount*100))
	params.Set("vnp_CreateDate", time.Now().Format("20060102150405"))
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_IpAddr", clientIP)
	params.Set("vnp_Locale", "vn")
	params.Set("vnp_OrderInfo", o.OrderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_ReturnUrl", g.returnURL)
	params.Set("vnp_TxnRef", o.OrderCode)

	query := canonicalQuery(params)
	sig := hmacSHA512(g.hashSecret, query)

	return g.payURL + "?" + query + "&vnp_SecureHash=" + sig, nil
}

// IPNはGETクエリで届く。署名検証してから正規形へ。
func (g *VNPay) ParseCallback(raw []byte) (CallbackResult, error) {
	params, err := url.ParseQuery(string(raw))
	if err != nil {
		return CallbackResult{}, fmt.Errorf("vnpay: bad query: %w", err)
	}

	recvSig := params.Get("vnp_SecureHash")
	if recvSig == "" {
		return CallbackResult{}, fmt.Errorf("vnpay: missing signature")
	}
	params.Del("vnp_SecureHash")
	params.Del("vnp_SecureHashType")

	expected := hmacSHA512(g.hashSecret, canonicalQuery(params))
	if !hmac.Equal([]byte(strings.ToLower(recvSig)), []byte(expected)) {
		return CallbackResult{}, fmt.Errorf("vnpay: signature mismatch")
	}

	orderCode := params.Get("vnp_TxnRef")
	txnNo := params.Get("vnp_TransactionNo")
	if orderCode == "" || txnNo == "" {
		return CallbackResult{}, fmt.Errorf("vnpay: missing fields")
	}

	return CallbackResult{
		OrderCode:      orderCode,
		TransactionRef: "VNPAY-" + txnNo,
		Success:        params.Get("vnp_ResponseCode") == "00",
	}, nil
}

// IPNへの応答は常にこれ（再送を止める）
func (g *VNPay) Ack() AckResponse {
	return AckResponse{
		Status:      200,
		ContentType: "application/json",
		Body:        `{"RspCode":"00","Message":"Confirm Success"}`,
	}
}

// キー昇順・URLエンコード済みのクエリ（署名対象）
func canonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}

func hmacSHA512(secret, data string) string {
	h := hmac.New(sha512.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
