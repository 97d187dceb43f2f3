package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod

	// 送料ポリシー（VND）
	ShippingFlatFee   int64 // 1販売者グループあたりの固定送料
	FreeShipThreshold int64 // この小計以上で送料無料（0なら無効）

	// 銀行振込の受取口座（チェックアウト応答でそのまま返す）
	BankName          string
	BankAccountName   string
	BankAccountNumber string

	// VNPayゲートウェイ
	VNPayTmnCode    string
	VNPayHashSecret string
	VNPayPayURL     string
	VNPayReturnURL  string

	// MoMoゲートウェイ
	MoMoPartnerCode string
	MoMoAccessKey   string
	MoMoSecretKey   string
	MoMoEndpoint    string
	MoMoReturnURL   string
	MoMoIPNURL      string

	// 通知ファンアウト先Kafka
	KafkaBrokers []string
	KafkaTopic   string
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv: os.Getenv("GO_ENV"),

		ShippingFlatFee:   atoi64(os.Getenv("SHIPPING_FLAT_FEE"), 30000),
		FreeShipThreshold: atoi64(os.Getenv("FREE_SHIP_THRESHOLD"), 0),

		BankName:          os.Getenv("BANK_NAME"),
		BankAccountName:   os.Getenv("BANK_ACCOUNT_NAME"),
		BankAccountNumber: os.Getenv("BANK_ACCOUNT_NUMBER"),

		VNPayTmnCode:    os.Getenv("VNPAY_TMN_CODE"),
		VNPayHashSecret: os.Getenv("VNPAY_HASH_SECRET"),
		VNPayPayURL:     os.Getenv("VNPAY_PAY_URL"),
		VNPayReturnURL:  os.Getenv("VNPAY_RETURN_URL"),

		MoMoPartnerCode: os.Getenv("MOMO_PARTNER_CODE"),
		MoMoAccessKey:   os.Getenv("MOMO_ACCESS_KEY"),
		MoMoSecretKey:   os.Getenv("MOMO_SECRET_KEY"),
		MoMoEndpoint:    os.Getenv("MOMO_ENDPOINT"),
		MoMoReturnURL:   os.Getenv("MOMO_RETURN_URL"),
		MoMoIPNURL:      os.Getenv("MOMO_IPN_URL"),

		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if cfg.KafkaTopic == "" {
		return Config{}, fmt.Errorf("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func atoi64(v string, def int64) int64 {
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
